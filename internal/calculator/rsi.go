package calculator

import (
	"errors"
	"math"
)

// CalculateRSI returns the Wilder-smoothed RSI series (alpha = 1/period).
// The first period-1 entries are NaN. When the average loss is zero the RSI
// is 100.
func CalculateRSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	alpha := 1.0 / float64(period)
	avgGain := ewm(gains, alpha, period)
	avgLoss := ewm(losses, alpha, period)

	rsi := make([]float64, len(closes))
	for i := range closes {
		switch {
		case math.IsNaN(avgGain[i]):
			rsi[i] = math.NaN()
		case avgLoss[i] == 0:
			rsi[i] = 100.0
		default:
			rs := avgGain[i] / avgLoss[i]
			rsi[i] = 100.0 - 100.0/(1.0+rs)
		}
	}
	return rsi, nil
}
