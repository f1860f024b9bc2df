package model

import (
	"math"
	"time"
)

// Trend is the direction classification derived from EMA alignment and RSI.
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral"
)

// Risk is the volatility classification derived from ATR percentage.
type Risk string

const (
	RiskLow    Risk = "Low"
	RiskMedium Risk = "Medium"
	RiskHigh   Risk = "High"
)

// ForecastResult is the real-valued next close prediction.
type ForecastResult struct {
	PredictedPrice float64
	AsOf           time.Time // timestamp of the last observed row
}

// MarketSnapshot holds the latest indicator values, rounded to 2 decimals.
type MarketSnapshot struct {
	Time       time.Time
	Close      float64
	RSI        float64
	EMAShort   float64
	EMALong    float64
	ATR        float64
	ATRPercent float64
}

// NewSnapshot derives the snapshot from the last table row.
func NewSnapshot(row FeatureRow) MarketSnapshot {
	atr := Round2(row.ATR)
	snap := MarketSnapshot{
		Time:     row.Time,
		Close:    Round2(row.Close),
		RSI:      Round2(row.RSI),
		EMAShort: Round2(row.EMAShort),
		EMALong:  Round2(row.EMALong),
		ATR:      atr,
	}
	if row.Close != 0 {
		snap.ATRPercent = Round2(atr / row.Close * 100)
	}
	return snap
}

// Narrative is the trend/risk explanation of a forecast.
type Narrative struct {
	Trend         Trend
	Risk          Risk
	Delta         float64
	MarketContext *float64 // nil when the external signal was unavailable
	Lines         []string
}

// RunResult is everything one pipeline run produced.
type RunResult struct {
	RunID     string
	Forecast  ForecastResult
	Snapshot  MarketSnapshot
	Narrative Narrative
}

// Round2 rounds v to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
