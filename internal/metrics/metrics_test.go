package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BTCForecaster/internal/model"
)

func TestRecordResult(t *testing.T) {
	r := New()
	dom := 48.0
	res := &model.RunResult{
		Forecast:  model.ForecastResult{PredictedPrice: 102.34},
		Snapshot:  model.MarketSnapshot{ATRPercent: 1},
		Narrative: model.Narrative{Trend: model.TrendBullish, Risk: model.RiskMedium, Delta: 2.34, MarketContext: &dom},
	}
	at := time.Unix(1700000000, 0)
	r.RecordResult(res, at)

	assert.Equal(t, 102.34, testutil.ToFloat64(r.predictedPrice.WithLabelValues("Medium")))
	assert.Equal(t, 2.34, testutil.ToFloat64(r.delta))
	assert.Equal(t, 48.0, testutil.ToFloat64(r.marketContext))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.trend.WithLabelValues("Bullish")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.trend.WithLabelValues("Bearish")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastSuccess))
}

func TestRecordSinkErrors(t *testing.T) {
	r := New()
	r.RecordSinkErrors([]error{
		&model.SinkError{Sink: "forward", Err: errors.New("down")},
		&model.SinkError{Sink: "forward", Err: errors.New("down")},
		errors.New("other"),
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(r.sinkFailures.WithLabelValues("forward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sinkFailures.WithLabelValues("unknown")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.RecordDuration(1500 * time.Millisecond)
	r.RecordHookFailures(1)

	path := filepath.Join(t.TempDir(), "forecaster.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "forecaster_run_duration_seconds 1.5")
	assert.Contains(t, string(data), "forecaster_hook_failures_total 1")
}
