// Package metrics exposes run results as Prometheus gauges written to a
// node-exporter textfile.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"BTCForecaster/internal/model"
)

// Recorder holds the metrics of one run on its own registry.
type Recorder struct {
	reg *prometheus.Registry

	predictedPrice *prometheus.GaugeVec
	delta          prometheus.Gauge
	atrPercentage  prometheus.Gauge
	marketContext  prometheus.Gauge
	trend          *prometheus.GaugeVec
	duration       prometheus.Gauge
	lastSuccess    prometheus.Gauge
	sinkFailures   *prometheus.CounterVec
	hookFailures   prometheus.Counter
}

// New creates a recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		predictedPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecaster_predicted_price",
			Help: "Predicted next close price",
		}, []string{"risk"}),
		delta: f.NewGauge(prometheus.GaugeOpts{
			Name: "forecaster_prediction_delta",
			Help: "Predicted price minus current close",
		}),
		atrPercentage: f.NewGauge(prometheus.GaugeOpts{
			Name: "forecaster_atr_percentage",
			Help: "ATR as a percentage of the current close",
		}),
		marketContext: f.NewGauge(prometheus.GaugeOpts{
			Name: "forecaster_btc_dominance",
			Help: "BTC market cap dominance percentage, when available",
		}),
		trend: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecaster_trend",
			Help: "1 for the current trend classification, 0 otherwise",
		}, []string{"trend"}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "forecaster_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "forecaster_last_success_timestamp_seconds",
			Help: "Unix time of the last successful forecast",
		}),
		sinkFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forecaster_sink_failures_total",
			Help: "Sink writes that failed during the run",
		}, []string{"sink"}),
		hookFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "forecaster_hook_failures_total",
			Help: "Post-run hooks that failed during the run",
		}),
	}
}

// RecordResult records the forecast and its classification.
func (r *Recorder) RecordResult(res *model.RunResult, at time.Time) {
	r.predictedPrice.WithLabelValues(string(res.Narrative.Risk)).Set(res.Forecast.PredictedPrice)
	r.delta.Set(res.Narrative.Delta)
	r.atrPercentage.Set(res.Snapshot.ATRPercent)
	if res.Narrative.MarketContext != nil {
		r.marketContext.Set(*res.Narrative.MarketContext)
	}
	for _, t := range []model.Trend{model.TrendBullish, model.TrendBearish, model.TrendNeutral} {
		v := 0.0
		if t == res.Narrative.Trend {
			v = 1
		}
		r.trend.WithLabelValues(string(t)).Set(v)
	}
	r.lastSuccess.Set(float64(at.Unix()))
}

// RecordSinkErrors counts each *model.SinkError by sink name.
func (r *Recorder) RecordSinkErrors(errs []error) {
	for _, err := range errs {
		var se *model.SinkError
		if errors.As(err, &se) {
			r.sinkFailures.WithLabelValues(se.Sink).Inc()
			continue
		}
		r.sinkFailures.WithLabelValues("unknown").Inc()
	}
}

// RecordHookFailures adds n failed hooks.
func (r *Recorder) RecordHookFailures(n int) {
	r.hookFailures.Add(float64(n))
}

// RecordDuration records the run wall time.
func (r *Recorder) RecordDuration(d time.Duration) {
	r.duration.Set(d.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
