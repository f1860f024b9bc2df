package narrative

import "BTCForecaster/internal/model"

// RSI bounds used by the trend rule.
const (
	Overbought = 70.0
	Oversold   = 30.0
)

// RiskTiers maps atr_percentage upper bounds to risk, checked in order.
var RiskTiers = []struct {
	Below float64
	Risk  model.Risk
}{
	{1.0, model.RiskLow},
	{2.5, model.RiskMedium},
}

// DefaultRisk applies at and above the last tier bound.
const DefaultRisk = model.RiskHigh

// Dominance thresholds for the market context commentary.
const (
	DominanceHigh = 50.0
	DominanceLow  = 42.0
)

// ClassifyTrend applies the first matching rule: short EMA above long with
// RSI below overbought is bullish, short below long with RSI above oversold
// is bearish, anything else is neutral.
func ClassifyTrend(emaShort, emaLong, rsi float64) model.Trend {
	switch {
	case emaShort > emaLong && rsi < Overbought:
		return model.TrendBullish
	case emaShort < emaLong && rsi > Oversold:
		return model.TrendBearish
	default:
		return model.TrendNeutral
	}
}

// ClassifyRisk maps an ATR percentage to a risk tier.
func ClassifyRisk(atrPercent float64) model.Risk {
	for _, t := range RiskTiers {
		if atrPercent < t.Below {
			return t.Risk
		}
	}
	return DefaultRisk
}

// ContextCommentary describes what a BTC dominance value implies.
func ContextCommentary(dominance float64) string {
	switch {
	case dominance > DominanceHigh:
		return "capital concentrating in primary asset"
	case dominance < DominanceLow:
		return "rotation toward alternative assets likely"
	default:
		return "balanced"
	}
}
