package collector

import (
	"context"

	"BTCForecaster/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns OHLCV bars for pair at interval minutes, oldest first.
	FetchBars(ctx context.Context, pair string, interval int) ([]model.OHLCV, error)
	Name() string
}
