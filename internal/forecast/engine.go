package forecast

import (
	"errors"
	"fmt"
	"math"

	"BTCForecaster/internal/model"
	"BTCForecaster/internal/scaler"
)

// shaped is implemented by models that know their input window shape.
type shaped interface {
	Shape() (int, int)
}

// Engine turns a feature table into a real-valued next-close forecast.
type Engine struct {
	model  Model
	scaler *scaler.MinMax
	seqLen int
}

// NewEngine binds a model and a fitted scaler to a window length.
func NewEngine(m Model, s *scaler.MinMax, seqLen int) (*Engine, error) {
	if m == nil {
		return nil, fmt.Errorf("nil model: %w", model.ErrModelLoad)
	}
	if s == nil {
		return nil, fmt.Errorf("nil scaler: %w", model.ErrModelLoad)
	}
	if seqLen <= 0 {
		return nil, errors.New("sequence length must be positive")
	}
	if sm, ok := m.(shaped); ok {
		n, f := sm.Shape()
		if n != seqLen {
			return nil, fmt.Errorf("model window %d, configured %d: %w", n, seqLen, model.ErrModelLoad)
		}
		if f != s.NumFeatures() {
			return nil, fmt.Errorf("model takes %d features, scaler has %d: %w", f, s.NumFeatures(), model.ErrScalerMismatch)
		}
	}
	return &Engine{model: m, scaler: s, seqLen: seqLen}, nil
}

// SequenceLength returns N.
func (e *Engine) SequenceLength() int { return e.seqLen }

// Predict returns the scaled next value of feature 0 for a scaled window.
func (e *Engine) Predict(w Window) (float64, error) {
	n, f := w.Shape()
	if n != e.seqLen {
		return 0, fmt.Errorf("window has %d steps, want %d: %w", n, e.seqLen, model.ErrInsufficientData)
	}
	if f != e.scaler.NumFeatures() {
		return 0, fmt.Errorf("window has %d features, want %d: %w", f, e.scaler.NumFeatures(), model.ErrScalerMismatch)
	}
	v, err := e.model.Predict(w)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("model produced non-finite output %v", v)
	}
	return v, nil
}

// Forecast scales the table, predicts from its last N rows and maps the
// result back to the price domain, rounded to 2 decimals.
func (e *Engine) Forecast(t *model.FeatureTable) (model.ForecastResult, error) {
	if t.Len() < e.seqLen+1 {
		return model.ForecastResult{}, fmt.Errorf("have %d rows, need %d: %w", t.Len(), e.seqLen+1, model.ErrInsufficientData)
	}
	scaled, err := e.scaler.TransformTable(t)
	if err != nil {
		return model.ForecastResult{}, err
	}
	w, err := Extract(scaled, e.seqLen, e.scaler.NumFeatures())
	if err != nil {
		return model.ForecastResult{}, err
	}
	p, err := e.Predict(w)
	if err != nil {
		return model.ForecastResult{}, err
	}
	price, err := e.scaler.InverseTarget(p)
	if err != nil {
		return model.ForecastResult{}, err
	}
	last, err := t.Last()
	if err != nil {
		return model.ForecastResult{}, err
	}
	return model.ForecastResult{
		PredictedPrice: model.Round2(price),
		AsOf:           last.Time,
	}, nil
}
