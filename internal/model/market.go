package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	VWAP   float64
	Volume float64
	Count  int64
}

// Column names of the enriched feature table.
const (
	ColTime     = "time"
	ColOpen     = "open"
	ColHigh     = "high"
	ColLow      = "low"
	ColClose    = "close"
	ColVWAP     = "vwap"
	ColVolume   = "volume"
	ColCount    = "count"
	ColEMAShort = "ema30"
	ColEMALong  = "ema100"
	ColRSI      = "rsi"
	ColATR      = "atr"
)

// RequiredColumns must be present in every feature table source.
// ATR is not listed: it is derived from high/low/close when missing.
var RequiredColumns = []string{ColClose, ColHigh, ColLow, ColEMAShort, ColEMALong, ColRSI}

// DefaultFeatures is the model feature order. Position 0 is the target.
var DefaultFeatures = []string{ColClose, ColEMAShort, ColEMALong, ColRSI}

// FeatureRow is one enriched bar.
type FeatureRow struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	VWAP     float64
	Volume   float64
	Count    int64
	EMAShort float64
	EMALong  float64
	RSI      float64
	ATR      float64
}

// Value returns the named column of the row.
func (r FeatureRow) Value(col string) (float64, bool) {
	switch col {
	case ColOpen:
		return r.Open, true
	case ColHigh:
		return r.High, true
	case ColLow:
		return r.Low, true
	case ColClose:
		return r.Close, true
	case ColVWAP:
		return r.VWAP, true
	case ColVolume:
		return r.Volume, true
	case ColCount:
		return float64(r.Count), true
	case ColEMAShort:
		return r.EMAShort, true
	case ColEMALong:
		return r.EMALong, true
	case ColRSI:
		return r.RSI, true
	case ColATR:
		return r.ATR, true
	}
	return 0, false
}

// FeatureTable is a time-ordered, gap-free set of enriched rows. It is
// read-only once built.
type FeatureTable struct {
	Rows []FeatureRow
}

// Len returns the number of rows.
func (t *FeatureTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Last returns the most recent row.
func (t *FeatureTable) Last() (FeatureRow, error) {
	if t.Len() == 0 {
		return FeatureRow{}, fmt.Errorf("empty feature table: %w", ErrData)
	}
	return t.Rows[len(t.Rows)-1], nil
}

// Matrix returns one vector per row holding the given columns in order.
func (t *FeatureTable) Matrix(cols []string) ([][]float64, error) {
	out := make([][]float64, t.Len())
	for i, row := range t.Rows {
		vec := make([]float64, len(cols))
		for j, col := range cols {
			v, ok := row.Value(col)
			if !ok {
				return nil, fmt.Errorf("unknown column %q: %w", col, ErrData)
			}
			vec[j] = v
		}
		out[i] = vec
	}
	return out, nil
}
