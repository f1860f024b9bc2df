// Package pipeline runs one forecast end to end: load the feature table,
// forecast, compose the narrative, publish to sinks, then run hooks.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"BTCForecaster/internal/forecast"
	"BTCForecaster/internal/hooks"
	"BTCForecaster/internal/metrics"
	"BTCForecaster/internal/model"
	"BTCForecaster/internal/narrative"
	"BTCForecaster/internal/sink"
)

// TableSource yields the feature table for a run.
type TableSource interface {
	Load() (*model.FeatureTable, error)
}

// TableFunc adapts a function to TableSource.
type TableFunc func() (*model.FeatureTable, error)

// Load calls f().
func (f TableFunc) Load() (*model.FeatureTable, error) { return f() }

// Outcome is what a completed run produced. Sink and hook failures do not
// affect Result.
type Outcome struct {
	Result       *model.RunResult
	SinkErrors   []error
	HookFailures int
}

// Runner wires the pipeline stages together.
type Runner struct {
	Table    TableSource
	Engine   *forecast.Engine
	Composer *narrative.Composer
	Sink     *sink.Sink
	Hooks    []hooks.Hook

	Metrics         *metrics.Recorder // nil disables metrics
	MetricsTextfile string

	NewID func() string
	Now   func() time.Time
}

// Run executes the pipeline once. It fails only on data or model errors,
// which happen before anything is written.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	newID := uuid.NewString
	if r.NewID != nil {
		newID = r.NewID
	}
	start := now()
	runID := newID()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Int("sequence_length", r.Engine.SequenceLength()).Msg("forecast run started")

	table, err := r.Table.Load()
	if err != nil {
		return nil, fmt.Errorf("load feature table: %w", err)
	}
	fc, err := r.Engine.Forecast(table)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	last, err := table.Last()
	if err != nil {
		return nil, err
	}
	snap := model.NewSnapshot(last)

	res := &model.RunResult{
		RunID:     runID,
		Forecast:  fc,
		Snapshot:  snap,
		Narrative: r.Composer.Compose(ctx, fc, snap),
	}
	logger.Info().
		Float64("prediction", fc.PredictedPrice).
		Float64("close", snap.Close).
		Float64("delta", res.Narrative.Delta).
		Str("trend", string(res.Narrative.Trend)).
		Str("risk", string(res.Narrative.Risk)).
		Msg("forecast ready")

	out := &Outcome{Result: res}
	if r.Sink != nil {
		out.SinkErrors = r.Sink.Publish(ctx, res)
	}
	if len(out.SinkErrors) > 0 {
		logger.Warn().Int("failed_sinks", len(out.SinkErrors)).Msg("some sinks failed")
	}
	out.HookFailures = hooks.RunAll(ctx, r.Hooks, res)

	if r.Metrics != nil {
		r.Metrics.RecordResult(res, now())
		r.Metrics.RecordSinkErrors(out.SinkErrors)
		r.Metrics.RecordHookFailures(out.HookFailures)
		r.Metrics.RecordDuration(now().Sub(start))
		if r.MetricsTextfile != "" {
			if err := r.Metrics.WriteTextfile(r.MetricsTextfile); err != nil {
				logger.Warn().Err(err).Str("path", r.MetricsTextfile).Msg("write metrics textfile failed")
			}
		}
	}

	logger.Info().Dur("elapsed", now().Sub(start)).Msg("forecast run finished")
	return out, nil
}
