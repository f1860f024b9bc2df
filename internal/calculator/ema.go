package calculator

import (
	"errors"
	"math"

	"BTCForecaster/internal/model"
)

// CalculateEMA returns the span-based exponential moving average series
// (alpha = 2/(period+1), seeded with the first value). The first period-1
// entries are NaN because there is not enough history behind them.
func CalculateEMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	return ewm(values, 2.0/float64(period+1), period), nil
}

// ewm is the recursive (adjust=false) exponentially weighted mean with a
// minimum number of observations before a value is emitted.
func ewm(values []float64, alpha float64, minPeriods int) []float64 {
	out := make([]float64, len(values))
	var mean float64
	for i, v := range values {
		if i == 0 {
			mean = v
		} else {
			mean = alpha*v + (1-alpha)*mean
		}
		if i+1 < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = mean
	}
	return out
}

// Closes extracts closing prices from bars.
func Closes(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
