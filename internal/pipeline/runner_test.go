package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BTCForecaster/internal/dominance"
	"BTCForecaster/internal/forecast"
	"BTCForecaster/internal/hooks"
	"BTCForecaster/internal/metrics"
	"BTCForecaster/internal/model"
	"BTCForecaster/internal/narrative"
	"BTCForecaster/internal/scaler"
	"BTCForecaster/internal/sink"
)

const seqLen = 60

// flatTable has constant close=100, ema short=105, ema long=100, rsi=60 and
// atr=1, so atr_percentage is 1.0.
func flatTable(n int) *model.FeatureTable {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]model.FeatureRow, n)
	for i := range rows {
		rows[i] = model.FeatureRow{
			Time:     start.AddDate(0, 0, i),
			Open:     100,
			High:     100.5,
			Low:      99.5,
			Close:    100,
			EMAShort: 105,
			EMALong:  100,
			RSI:      60,
			ATR:      1,
		}
	}
	return &model.FeatureTable{Rows: rows}
}

func stubEngine(t *testing.T, price float64) *forecast.Engine {
	t.Helper()
	sc, err := scaler.Fit(model.DefaultFeatures, [][]float64{{0, 0, 0, 0}, {200, 200, 200, 100}})
	require.NoError(t, err)
	m := forecast.ModelFunc(func(forecast.Window) (float64, error) {
		return sc.TransformValue(0, price), nil
	})
	e, err := forecast.NewEngine(m, sc, seqLen)
	require.NoError(t, err)
	return e
}

func newRunner(t *testing.T, dir string) *Runner {
	return &Runner{
		Table:    TableFunc(func() (*model.FeatureTable, error) { return flatTable(seqLen + 1), nil }),
		Engine:   stubEngine(t, 102.34),
		Composer: &narrative.Composer{},
		Sink: &sink.Sink{Paths: sink.Paths{
			Latest:  filepath.Join(dir, "prediction.json"),
			History: filepath.Join(dir, "predictions_log.csv"),
			Diff:    filepath.Join(dir, "prediction_diff.csv"),
			Report:  filepath.Join(dir, "prediction_report.txt"),
		}},
		NewID: func() string { return "run-1" },
	}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	out, err := newRunner(t, dir).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, out.SinkErrors)

	res := out.Result
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 102.34, res.Forecast.PredictedPrice)
	assert.Equal(t, model.TrendBullish, res.Narrative.Trend)
	assert.Equal(t, model.RiskMedium, res.Narrative.Risk)
	assert.Equal(t, 2.34, res.Narrative.Delta)
	assert.Equal(t, 1.0, res.Snapshot.ATRPercent)
	assert.Nil(t, res.Narrative.MarketContext)

	latest, err := os.ReadFile(filepath.Join(dir, "prediction.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"prediction":102.34}`, string(latest))

	report, err := os.ReadFile(filepath.Join(dir, "prediction_report.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "BTC Forecast: $102.34")
}

func TestRun_ForwardFailureDoesNotChangeResult(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	good := newRunner(t, t.TempDir())
	good.Sink.Forwarder = sink.NewForwarder(ok.URL, "", "", time.Second)
	bad := newRunner(t, t.TempDir())
	bad.Sink.Forwarder = sink.NewForwarder(down.URL, "", "", time.Second)

	okOut, err := good.Run(context.Background())
	require.NoError(t, err)
	badOut, err := bad.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, okOut.SinkErrors)
	require.Len(t, badOut.SinkErrors, 1)
	assert.ErrorIs(t, badOut.SinkErrors[0], model.ErrSinkWrite)
	assert.Equal(t, okOut.Result, badOut.Result)
}

func TestRun_MarketContextFailureOmitsSection(t *testing.T) {
	r := newRunner(t, t.TempDir())
	r.Composer = &narrative.Composer{Source: dominance.SourceFunc(func(context.Context) (float64, error) {
		return 0, model.ErrSignalUnavailable
	})}
	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, out.Result.Narrative.MarketContext)
	assert.Equal(t, 102.34, out.Result.Forecast.PredictedPrice)
}

func TestRun_DataErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	r := newRunner(t, dir)
	r.Table = TableFunc(func() (*model.FeatureTable, error) { return flatTable(seqLen), nil })

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_LoadError(t *testing.T) {
	r := newRunner(t, t.TempDir())
	r.Table = TableFunc(func() (*model.FeatureTable, error) { return nil, model.ErrData })
	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrData)
}

type failingHook struct{ ran bool }

func (h *failingHook) Name() string { return "failing" }

func (h *failingHook) Run(context.Context, *model.RunResult) error {
	h.ran = true
	return errors.New("nope")
}

func TestRun_HooksAndMetrics(t *testing.T) {
	dir := t.TempDir()
	h := &failingHook{}
	r := newRunner(t, dir)
	r.Hooks = []hooks.Hook{h}
	r.Metrics = metrics.New()
	r.MetricsTextfile = filepath.Join(dir, "forecaster.prom")

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, h.ran)
	assert.Equal(t, 1, out.HookFailures)

	data, err := os.ReadFile(r.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `forecaster_predicted_price{risk="Medium"} 102.34`)
	assert.Contains(t, string(data), "forecaster_hook_failures_total 1")
}
