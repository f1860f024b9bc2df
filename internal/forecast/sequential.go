package forecast

import (
	"errors"
	"fmt"
	"math"
)

// FormatSequential identifies a stacked LSTM/Dense network artifact.
const FormatSequential = "sequential"

// Layer types and activations understood by Sequential.
const (
	LayerLSTM  = "lstm"
	LayerDense = "dense"

	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationTanh    = "tanh"
	ActivationSigmoid = "sigmoid"
)

// Layer holds the weights of one layer. LSTM kernels pack the input, forget,
// cell and output gates in that order along the second axis.
type Layer struct {
	Type            string      `json:"type"`
	Units           int         `json:"units"`
	Activation      string      `json:"activation,omitempty"`
	ReturnSequences bool        `json:"return_sequences,omitempty"`
	Kernel          [][]float64 `json:"kernel"`
	RecurrentKernel [][]float64 `json:"recurrent_kernel,omitempty"`
	Bias            []float64   `json:"bias"`
}

// Sequential is a feed-forward stack of LSTM and Dense layers.
type Sequential struct {
	Format     string  `json:"format"`
	InputShape [2]int  `json:"input_shape"`
	Layers     []Layer `json:"layers"`
}

// Shape returns the expected (N, F) window shape.
func (m *Sequential) Shape() (int, int) { return m.InputShape[0], m.InputShape[1] }

// Validate checks that every weight matrix matches the layer wiring and that
// the network ends in a single scalar.
func (m *Sequential) Validate() error {
	steps, width := m.InputShape[0], m.InputShape[1]
	if steps <= 0 || width <= 0 {
		return fmt.Errorf("invalid input shape %v", m.InputShape)
	}
	if len(m.Layers) == 0 {
		return errors.New("no layers")
	}

	sequence := true
	for i, l := range m.Layers {
		if l.Units <= 0 {
			return fmt.Errorf("layer %d: units must be positive", i)
		}
		switch l.Type {
		case LayerLSTM:
			if !sequence {
				return fmt.Errorf("layer %d: lstm needs a sequence input", i)
			}
			if err := checkMatrix(l.Kernel, width, 4*l.Units); err != nil {
				return fmt.Errorf("layer %d kernel: %w", i, err)
			}
			if err := checkMatrix(l.RecurrentKernel, l.Units, 4*l.Units); err != nil {
				return fmt.Errorf("layer %d recurrent kernel: %w", i, err)
			}
			if len(l.Bias) != 4*l.Units {
				return fmt.Errorf("layer %d: bias has %d values, want %d", i, len(l.Bias), 4*l.Units)
			}
			sequence = l.ReturnSequences
		case LayerDense:
			if sequence {
				return fmt.Errorf("layer %d: dense needs a vector input", i)
			}
			if err := checkMatrix(l.Kernel, width, l.Units); err != nil {
				return fmt.Errorf("layer %d kernel: %w", i, err)
			}
			if len(l.Bias) != l.Units {
				return fmt.Errorf("layer %d: bias has %d values, want %d", i, len(l.Bias), l.Units)
			}
			if _, err := activation(l.Activation); err != nil {
				return fmt.Errorf("layer %d: %w", i, err)
			}
		default:
			return fmt.Errorf("layer %d: unknown type %q", i, l.Type)
		}
		width = l.Units
	}
	if sequence || width != 1 {
		return errors.New("network must end in a single scalar output")
	}
	return nil
}

func checkMatrix(m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("has %d rows, want %d", len(m), rows)
	}
	for i, r := range m {
		if len(r) != cols {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(r), cols)
		}
	}
	return nil
}

// Predict runs a forward pass over the window.
func (m *Sequential) Predict(window Window) (float64, error) {
	steps, width := m.Shape()
	if n, f := window.Shape(); n != steps || f != width {
		return 0, fmt.Errorf("window shape (%d, %d), model expects (%d, %d)", n, f, steps, width)
	}

	seq := [][]float64(window)
	var vec []float64
	for _, l := range m.Layers {
		switch l.Type {
		case LayerLSTM:
			out := l.lstm(seq)
			if l.ReturnSequences {
				seq = out
			} else {
				vec = out[len(out)-1]
			}
		case LayerDense:
			act, _ := activation(l.Activation)
			vec = l.dense(vec, act)
		}
	}
	return vec[0], nil
}

func (l *Layer) lstm(seq [][]float64) [][]float64 {
	u := l.Units
	h := make([]float64, u)
	c := make([]float64, u)
	z := make([]float64, 4*u)
	out := make([][]float64, len(seq))

	for t, x := range seq {
		copy(z, l.Bias)
		for i, xi := range x {
			for k, w := range l.Kernel[i] {
				z[k] += xi * w
			}
		}
		for i, hi := range h {
			for k, w := range l.RecurrentKernel[i] {
				z[k] += hi * w
			}
		}
		for j := 0; j < u; j++ {
			in := sigmoid(z[j])
			forget := sigmoid(z[u+j])
			cand := math.Tanh(z[2*u+j])
			o := sigmoid(z[3*u+j])
			c[j] = forget*c[j] + in*cand
			h[j] = o * math.Tanh(c[j])
		}
		out[t] = append([]float64(nil), h...)
	}
	return out
}

func (l *Layer) dense(in []float64, act func(float64) float64) []float64 {
	out := make([]float64, l.Units)
	for k := range out {
		sum := l.Bias[k]
		for i, v := range in {
			sum += v * l.Kernel[i][k]
		}
		out[k] = act(sum)
	}
	return out
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "", ActivationLinear:
		return func(v float64) float64 { return v }, nil
	case ActivationReLU:
		return func(v float64) float64 { return math.Max(0, v) }, nil
	case ActivationTanh:
		return math.Tanh, nil
	case ActivationSigmoid:
		return sigmoid, nil
	}
	return nil, fmt.Errorf("unknown activation %q", name)
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }
