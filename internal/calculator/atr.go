package calculator

import (
	"errors"
	"math"
)

// CalculateATR returns the average true range series. The value at index
// period-1 is the mean true range of the first period bars, later values use
// Wilder smoothing. Earlier entries are NaN.
func CalculateATR(highs, lows, closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(highs) != len(closes) || len(lows) != len(closes) {
		return nil, errors.New("high/low/close length mismatch")
	}

	n := len(closes)
	atr := make([]float64, n)
	for i := range atr {
		atr[i] = math.NaN()
	}
	if n < period {
		return atr, nil
	}

	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		tr[i] = highs[i] - lows[i]
		if i > 0 {
			tr[i] = math.Max(tr[i], math.Abs(highs[i]-closes[i-1]))
			tr[i] = math.Max(tr[i], math.Abs(lows[i]-closes[i-1]))
		}
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr[period-1] = sum / float64(period)
	for i := period; i < n; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return atr, nil
}
