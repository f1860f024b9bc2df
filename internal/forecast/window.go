package forecast

import (
	"errors"
	"fmt"

	"BTCForecaster/internal/model"
)

// Window is N consecutive scaled feature vectors of width F, oldest first.
type Window [][]float64

// Shape returns (N, F).
func (w Window) Shape() (int, int) {
	if len(w) == 0 {
		return 0, 0
	}
	return len(w), len(w[0])
}

// Extract returns a copy of the last n rows of the scaled matrix, in time
// order. Every row must hold exactly f features.
func Extract(matrix [][]float64, n, f int) (Window, error) {
	if n <= 0 {
		return nil, errors.New("window length must be positive")
	}
	if len(matrix) < n {
		return nil, fmt.Errorf("have %d rows, window needs %d: %w", len(matrix), n, model.ErrInsufficientData)
	}
	tail := matrix[len(matrix)-n:]
	w := make(Window, n)
	for i, row := range tail {
		if len(row) != f {
			return nil, fmt.Errorf("window row %d has %d features, want %d: %w", i, len(row), f, model.ErrScalerMismatch)
		}
		w[i] = append([]float64(nil), row...)
	}
	return w, nil
}
