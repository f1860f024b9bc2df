package forecast

import (
	"encoding/json"
	"fmt"
	"os"

	"BTCForecaster/internal/model"
)

// Model is a trained sequence model. Predict consumes an (N, F) window and
// returns the scaled next value of feature 0. Implementations must be
// deterministic and must not update weights.
type Model interface {
	Predict(window Window) (float64, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(window Window) (float64, error)

// Predict calls f(window).
func (f ModelFunc) Predict(window Window) (float64, error) { return f(window) }

// LoadModel reads a model artifact, dispatching on its format field.
func LoadModel(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w: %w", path, model.ErrModelLoad, err)
	}
	var header struct {
		Format string `json:"format"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode model %s: %w: %w", path, model.ErrModelLoad, err)
	}

	switch header.Format {
	case FormatSequential:
		var m Sequential
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode model %s: %w: %w", path, model.ErrModelLoad, err)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("model %s: %w: %w", path, model.ErrModelLoad, err)
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("model %s: unsupported format %q: %w", path, header.Format, model.ErrModelLoad)
	}
}
