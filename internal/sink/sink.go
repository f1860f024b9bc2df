// Package sink persists a run result and forwards it downstream. Every sink
// runs regardless of the others failing; failures are returned one by one.
package sink

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"BTCForecaster/internal/model"
	"BTCForecaster/internal/notifier"
	"BTCForecaster/internal/recorder"
)

// Sink names, used in errors, logs and metrics labels.
const (
	NameLatest  = "latest"
	NameHistory = "history"
	NameDiff    = "diff"
	NameReport  = "report"
	NameForward = "forward"
	NameSQLite  = "sqlite"
)

// Paths of the file sinks. An empty path disables that sink.
type Paths struct {
	Latest  string
	History string
	Diff    string
	Report  string
}

// Sink fans a run result out to every configured destination.
type Sink struct {
	Paths     Paths
	Forwarder *Forwarder        // nil disables forwarding
	Recorder  recorder.Recorder // nil disables the database sink
	Now       func() time.Time
}

type step struct {
	name string
	run  func() error
}

// Publish writes res to all sinks and returns one *model.SinkError per
// failed sink. It never returns early.
func (s *Sink) Publish(ctx context.Context, res *model.RunResult) []error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now().UTC()
	ts := at.Format(TimeLayout)
	pred := ftoa(res.Forecast.PredictedPrice)

	var steps []step
	if s.Paths.Latest != "" {
		steps = append(steps, step{NameLatest, func() error {
			return writeLatest(s.Paths.Latest, res.Forecast.PredictedPrice)
		}})
	}
	if s.Paths.History != "" {
		steps = append(steps, step{NameHistory, func() error {
			return appendRecord(s.Paths.History, []string{ts, pred})
		}})
	}
	if s.Paths.Diff != "" {
		steps = append(steps, step{NameDiff, func() error {
			return appendRecord(s.Paths.Diff, []string{ts, pred, ftoa(res.Snapshot.Close), ftoa(res.Narrative.Delta)})
		}})
	}
	if s.Paths.Report != "" {
		steps = append(steps, step{NameReport, func() error {
			return writeAtomic(s.Paths.Report, []byte(notifier.FormatReport(res.Narrative)))
		}})
	}
	if s.Forwarder != nil {
		steps = append(steps, step{NameForward, func() error {
			return s.Forwarder.Forward(ctx, NewPayload(res))
		}})
	}
	if s.Recorder != nil {
		steps = append(steps, step{NameSQLite, func() error {
			return s.Recorder.RecordPrediction(recorder.NewPredictionRecord(res, at))
		}})
	}

	var errs []error
	for _, st := range steps {
		if err := st.run(); err != nil {
			log.Error().Err(err).Str("sink", st.name).Msg("sink write failed")
			errs = append(errs, &model.SinkError{Sink: st.name, Err: err})
			continue
		}
		log.Debug().Str("sink", st.name).Msg("sink written")
	}
	return errs
}
