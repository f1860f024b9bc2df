// Package scaler implements the fitted per-feature min-max transform shared
// by the training job and the forecaster.
//
// Each feature is mapped independently: x' = x*scale + offset. There are no
// cross-feature terms, so the target (feature 0) can be inverted from a
// vector whose other positions hold placeholders.
package scaler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"BTCForecaster/internal/model"
)

// MinMax is a fitted, immutable min-max scaler.
type MinMax struct {
	Features     []string   `json:"features"`
	DataMin      []float64  `json:"data_min"`
	DataMax      []float64  `json:"data_max"`
	FeatureRange [2]float64 `json:"feature_range"`

	scale  []float64
	offset []float64
}

// Fit computes per-feature min/max over rows. Rows must have one value per
// feature in the given order.
func Fit(features []string, rows [][]float64) (*MinMax, error) {
	if len(features) == 0 {
		return nil, errors.New("no features")
	}
	if len(rows) == 0 {
		return nil, errors.New("no rows to fit")
	}
	s := &MinMax{
		Features:     append([]string(nil), features...),
		DataMin:      make([]float64, len(features)),
		DataMax:      make([]float64, len(features)),
		FeatureRange: [2]float64{0, 1},
	}
	for i, row := range rows {
		if len(row) != len(features) {
			return nil, fmt.Errorf("row %d has %d values, want %d: %w", i, len(row), len(features), model.ErrScalerMismatch)
		}
		for j, v := range row {
			if i == 0 || v < s.DataMin[j] {
				s.DataMin[j] = v
			}
			if i == 0 || v > s.DataMax[j] {
				s.DataMax[j] = v
			}
		}
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads a fitted scaler artifact.
func Load(path string) (*MinMax, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler %s: %w: %w", path, model.ErrModelLoad, err)
	}
	var s MinMax
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w: %w", path, model.ErrModelLoad, err)
	}
	if err := s.init(); err != nil {
		return nil, fmt.Errorf("scaler %s: %w: %w", path, model.ErrModelLoad, err)
	}
	return &s, nil
}

// Save writes the scaler artifact.
func (s *MinMax) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *MinMax) init() error {
	n := len(s.Features)
	if n == 0 {
		return errors.New("scaler has no features")
	}
	if len(s.DataMin) != n || len(s.DataMax) != n {
		return fmt.Errorf("scaler has %d features but %d mins and %d maxs", n, len(s.DataMin), len(s.DataMax))
	}
	if s.FeatureRange == [2]float64{} {
		s.FeatureRange = [2]float64{0, 1}
	}
	lo, hi := s.FeatureRange[0], s.FeatureRange[1]
	if !(hi > lo) {
		return fmt.Errorf("invalid feature range [%g, %g]", lo, hi)
	}

	s.scale = make([]float64, n)
	s.offset = make([]float64, n)
	for i := 0; i < n; i++ {
		span := s.DataMax[i] - s.DataMin[i]
		if span < 0 || math.IsNaN(span) || math.IsInf(span, 0) {
			return fmt.Errorf("feature %q has invalid range [%g, %g]", s.Features[i], s.DataMin[i], s.DataMax[i])
		}
		// A constant feature keeps unit scale.
		if span == 0 {
			span = 1
		}
		s.scale[i] = (hi - lo) / span
		s.offset[i] = lo - s.DataMin[i]*s.scale[i]
	}
	return nil
}

// NumFeatures returns how many features the scaler was fitted with.
func (s *MinMax) NumFeatures() int { return len(s.Features) }

// CheckOrder verifies that features match the fitted order exactly.
func (s *MinMax) CheckOrder(features []string) error {
	if len(features) != len(s.Features) {
		return fmt.Errorf("got %d features, scaler fitted with %d: %w", len(features), len(s.Features), model.ErrScalerMismatch)
	}
	for i := range features {
		if features[i] != s.Features[i] {
			return fmt.Errorf("feature %d is %q, scaler fitted with %q: %w", i, features[i], s.Features[i], model.ErrScalerMismatch)
		}
	}
	return nil
}

// Transform scales every row. Values are not clamped, so inputs outside the
// training range map outside the feature range.
func (s *MinMax) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.scale) {
			return nil, fmt.Errorf("row %d has %d columns, scaler fitted with %d: %w", i, len(row), len(s.scale), model.ErrScalerMismatch)
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = v*s.scale[j] + s.offset[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// TransformTable scales the table columns in the fitted feature order.
func (s *MinMax) TransformTable(t *model.FeatureTable) ([][]float64, error) {
	m, err := t.Matrix(s.Features)
	if err != nil {
		return nil, err
	}
	return s.Transform(m)
}

// TransformValue scales a single value of feature i.
func (s *MinMax) TransformValue(i int, v float64) float64 {
	return v*s.scale[i] + s.offset[i]
}

// Inverse maps a full scaled vector back to real units.
func (s *MinMax) Inverse(row []float64) ([]float64, error) {
	if len(row) != len(s.scale) {
		return nil, fmt.Errorf("vector has %d columns, scaler fitted with %d: %w", len(row), len(s.scale), model.ErrScalerMismatch)
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.offset[j]) / s.scale[j]
	}
	return out, nil
}

// InverseTarget reconstructs the real value of feature 0 from its scaled
// value. The other positions are filled with zero; this is only correct
// because each feature is inverted independently.
func (s *MinMax) InverseTarget(scaled float64) (float64, error) {
	if len(s.scale) == 0 {
		return 0, fmt.Errorf("scaler has no fitted features: %w", model.ErrScalerMismatch)
	}
	vec := make([]float64, len(s.scale))
	vec[0] = scaled
	vals, err := s.Inverse(vec)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}
