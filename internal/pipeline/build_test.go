package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BTCForecaster/internal/config"
	"BTCForecaster/internal/dataset"
	"BTCForecaster/internal/forecast"
	"BTCForecaster/internal/model"
	"BTCForecaster/internal/scaler"
)

// constantNet ignores its input: zero LSTM weights feed a dense layer whose
// kernel is zero, so the output is the dense bias.
func constantNet(steps, features int, out float64) *forecast.Sequential {
	kernel := make([][]float64, features)
	for i := range kernel {
		kernel[i] = []float64{0, 0, 0, 0}
	}
	return &forecast.Sequential{
		Format:     forecast.FormatSequential,
		InputShape: [2]int{steps, features},
		Layers: []forecast.Layer{
			{Type: forecast.LayerLSTM, Units: 1, Kernel: kernel,
				RecurrentKernel: [][]float64{{0, 0, 0, 0}}, Bias: []float64{0, 0, 0, 0}},
			{Type: forecast.LayerDense, Units: 1, Activation: forecast.ActivationLinear,
				Kernel: [][]float64{{0}}, Bias: []float64{out}},
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.Load(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	cfg.Data.CSVPath = filepath.Join(dir, "btc.csv")
	cfg.Model.Path = filepath.Join(dir, "model.json")
	cfg.Model.ScalerPath = filepath.Join(dir, "scaler.json")
	cfg.Output.LatestPath = filepath.Join(dir, "out", "prediction.json")
	cfg.Output.HistoryPath = filepath.Join(dir, "out", "predictions_log.csv")
	cfg.Output.DiffPath = filepath.Join(dir, "out", "prediction_diff.csv")
	cfg.Output.ReportPath = filepath.Join(dir, "out", "prediction_report.txt")
	cfg.Database.SQLitePath = filepath.Join(dir, "history.db")
	cfg.MarketContext.Enabled = false
	cfg.Forward.URL = ""
	cfg.Telegram.BotToken = ""

	require.NoError(t, dataset.Save(cfg.Data.CSVPath, flatTable(seqLen+1)))

	sc, err := scaler.Fit(model.DefaultFeatures, [][]float64{{0, 0, 0, 0}, {200, 200, 200, 100}})
	require.NoError(t, err)
	require.NoError(t, sc.Save(cfg.Model.ScalerPath))

	data, err := json.Marshal(constantNet(seqLen, 4, sc.TransformValue(0, 102.34)))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.Model.Path, data, 0o644))
	return cfg
}

func TestNew_RunsFromArtifacts(t *testing.T) {
	cfg := testConfig(t)
	r, closeFn, err := New(cfg)
	require.NoError(t, err)
	defer closeFn()

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.SinkErrors)
	assert.Equal(t, 102.34, out.Result.Forecast.PredictedPrice)
	assert.Equal(t, model.TrendBullish, out.Result.Narrative.Trend)
	assert.FileExists(t, cfg.Output.ReportPath)
	assert.FileExists(t, cfg.Database.SQLitePath)
}

func TestNew_FeatureOrderMismatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Features = []string{"close", "ema100", "ema30", "rsi"}
	_, _, err := New(cfg)
	assert.ErrorIs(t, err, model.ErrScalerMismatch)

	cfg.Data.Features = []string{"rsi", "close", "ema30", "ema100"}
	_, _, err = New(cfg)
	assert.ErrorIs(t, err, model.ErrScalerMismatch)
}

func TestNew_MissingModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.json")
	_, _, err := New(cfg)
	assert.ErrorIs(t, err, model.ErrModelLoad)
}

func TestNew_WindowLengthMismatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.SequenceLength = 30
	_, _, err := New(cfg)
	assert.ErrorIs(t, err, model.ErrModelLoad)
}

func TestNewCollector(t *testing.T) {
	cfg := testConfig(t)
	c := NewCollector(cfg)
	assert.Equal(t, "kraken", c.Fetcher.Name())
	assert.Equal(t, "XXBTZUSD", c.Pair)
	assert.Equal(t, 30, c.Periods.EMAShort)
	assert.Equal(t, 100, c.Periods.EMALong)
}
