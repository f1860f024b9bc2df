package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"BTCForecaster/internal/calculator"
	"BTCForecaster/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, _ int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	return generateMockBars(m.Price, 300), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -count)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001 + 0.01*math.Sin(float64(i)/5))
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			VWAP:   p,
			Volume: 1000,
			Count:  100,
		}
	}
	return bars
}

// Periods are the indicator lookbacks of the enriched table.
type Periods struct {
	EMAShort int
	EMALong  int
	RSI      int
	ATR      int
}

// DefaultPeriods are EMA 30/100, RSI 14 and ATR 14.
var DefaultPeriods = Periods{EMAShort: 30, EMALong: 100, RSI: 14, ATR: 14}

// Collector orchestrates data fetching and indicator computation.
type Collector struct {
	Fetcher  Fetcher
	Pair     string
	Interval int
	Periods  Periods
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, pair string, interval int, periods Periods) *Collector {
	return &Collector{Fetcher: fetcher, Pair: pair, Interval: interval, Periods: periods}
}

// Enrich fetches bars and returns the feature table with every indicator
// defined. Warm-up rows are dropped.
func (c *Collector) Enrich(ctx context.Context) (*model.FeatureTable, error) {
	bars, err := c.Fetcher.FetchBars(ctx, c.Pair, c.Interval)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	log.Info().Str("fetcher", c.Fetcher.Name()).Str("pair", c.Pair).Int("bars", len(bars)).Msg("bars fetched")

	table, err := BuildTable(bars, c.Periods)
	if err != nil {
		return nil, err
	}
	log.Info().Int("rows", table.Len()).Int("warmup_dropped", len(bars)-table.Len()).Msg("feature table built")
	return table, nil
}

// BuildTable computes EMA short/long, RSI and ATR over time-ordered bars and
// keeps only rows where all of them are defined.
func BuildTable(bars []model.OHLCV, p Periods) (*model.FeatureTable, error) {
	closes := calculator.Closes(bars)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	emaShort, err := calculator.CalculateEMA(closes, p.EMAShort)
	if err != nil {
		return nil, fmt.Errorf("ema short: %w", err)
	}
	emaLong, err := calculator.CalculateEMA(closes, p.EMALong)
	if err != nil {
		return nil, fmt.Errorf("ema long: %w", err)
	}
	rsi, err := calculator.CalculateRSI(closes, p.RSI)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	atr, err := calculator.CalculateATR(highs, lows, closes, p.ATR)
	if err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}

	rows := make([]model.FeatureRow, 0, len(bars))
	for i, b := range bars {
		if math.IsNaN(emaShort[i]) || math.IsNaN(emaLong[i]) || math.IsNaN(rsi[i]) || math.IsNaN(atr[i]) {
			continue
		}
		rows = append(rows, model.FeatureRow{
			Time:     b.Time,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			VWAP:     b.VWAP,
			Volume:   b.Volume,
			Count:    b.Count,
			EMAShort: emaShort[i],
			EMALong:  emaLong[i],
			RSI:      rsi[i],
			ATR:      atr[i],
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%d bars leave no row with every indicator defined: %w", len(bars), model.ErrData)
	}
	return &model.FeatureTable{Rows: rows}, nil
}
