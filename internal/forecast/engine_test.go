package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BTCForecaster/internal/model"
	"BTCForecaster/internal/scaler"
)

const testSeqLen = 60

func flatTable(n int) *model.FeatureTable {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]model.FeatureRow, n)
	for i := range rows {
		rows[i] = model.FeatureRow{
			Time:     start.Add(time.Duration(i) * time.Hour),
			Close:    100,
			High:     101,
			Low:      99,
			EMAShort: 105,
			EMALong:  100,
			RSI:      60,
			ATR:      1,
		}
	}
	return &model.FeatureTable{Rows: rows}
}

func testScaler(t *testing.T) *scaler.MinMax {
	t.Helper()
	s, err := scaler.Fit(model.DefaultFeatures, [][]float64{{0, 0, 0, 0}, {200, 200, 200, 100}})
	require.NoError(t, err)
	return s
}

func constantModel(v float64) Model {
	return ModelFunc(func(Window) (float64, error) { return v, nil })
}

func TestEngine_Forecast(t *testing.T) {
	s := testScaler(t)
	var seen Window
	m := ModelFunc(func(w Window) (float64, error) {
		seen = w
		return s.TransformValue(0, 102.34), nil
	})
	e, err := NewEngine(m, s, testSeqLen)
	require.NoError(t, err)
	assert.Equal(t, testSeqLen, e.SequenceLength())

	table := flatTable(testSeqLen + 1)
	res, err := e.Forecast(table)
	require.NoError(t, err)
	assert.Equal(t, 102.34, res.PredictedPrice)
	assert.Equal(t, table.Rows[testSeqLen].Time, res.AsOf)

	n, f := seen.Shape()
	assert.Equal(t, testSeqLen, n)
	assert.Equal(t, 4, f)
	assert.InDelta(t, 0.5, seen[0][0], 1e-12)
	assert.InDelta(t, 0.6, seen[0][3], 1e-12)
}

func TestEngine_ForecastRounds(t *testing.T) {
	s := testScaler(t)
	e, err := NewEngine(constantModel(s.TransformValue(0, 101.23456)), s, testSeqLen)
	require.NoError(t, err)
	res, err := e.Forecast(flatTable(testSeqLen + 5))
	require.NoError(t, err)
	assert.Equal(t, 101.23, res.PredictedPrice)
}

func TestEngine_InsufficientData(t *testing.T) {
	e, err := NewEngine(constantModel(0.5), testScaler(t), testSeqLen)
	require.NoError(t, err)

	_, err = e.Forecast(flatTable(testSeqLen))
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = e.Forecast(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestEngine_ScalerWidthMismatch(t *testing.T) {
	s, err := scaler.Fit([]string{model.ColClose, model.ColRSI}, [][]float64{{0, 0}, {1, 1}})
	require.NoError(t, err)
	e, err := NewEngine(constantModel(0.5), s, 2)
	require.NoError(t, err)

	_, err = e.Predict(Window{{1, 2, 3}, {1, 2, 3}})
	assert.ErrorIs(t, err, model.ErrScalerMismatch)
}

func TestEngine_ModelErrors(t *testing.T) {
	s := testScaler(t)

	boom := errors.New("boom")
	e, err := NewEngine(ModelFunc(func(Window) (float64, error) { return 0, boom }), s, testSeqLen)
	require.NoError(t, err)
	_, err = e.Forecast(flatTable(testSeqLen + 1))
	assert.ErrorIs(t, err, boom)

	e, err = NewEngine(constantModel(math.NaN()), s, testSeqLen)
	require.NoError(t, err)
	_, err = e.Forecast(flatTable(testSeqLen + 1))
	assert.Error(t, err)
}

func TestNewEngine_ChecksModelShape(t *testing.T) {
	s := testScaler(t)

	_, err := NewEngine(nil, s, testSeqLen)
	assert.ErrorIs(t, err, model.ErrModelLoad)

	_, err = NewEngine(tinyNet(testSeqLen), s, testSeqLen)
	assert.ErrorIs(t, err, model.ErrScalerMismatch)

	_, err = NewEngine(tinyNet(10), s, testSeqLen)
	assert.ErrorIs(t, err, model.ErrModelLoad)
}
