package recorder

import (
	"time"

	"BTCForecaster/internal/model"
)

// PredictionRecord is one stored forecast run.
type PredictionRecord struct {
	RunID         string
	RecordedAt    time.Time
	AsOf          time.Time
	Prediction    float64
	Close         float64
	Delta         float64
	Trend         model.Trend
	Risk          model.Risk
	RSI           float64
	EMAShort      float64
	EMALong       float64
	ATRPercent    float64
	MarketContext *float64
}

// NewPredictionRecord flattens a run result.
func NewPredictionRecord(res *model.RunResult, at time.Time) *PredictionRecord {
	return &PredictionRecord{
		RunID:         res.RunID,
		RecordedAt:    at,
		AsOf:          res.Forecast.AsOf,
		Prediction:    res.Forecast.PredictedPrice,
		Close:         res.Snapshot.Close,
		Delta:         res.Narrative.Delta,
		Trend:         res.Narrative.Trend,
		Risk:          res.Narrative.Risk,
		RSI:           res.Snapshot.RSI,
		EMAShort:      res.Snapshot.EMAShort,
		EMALong:       res.Snapshot.EMALong,
		ATRPercent:    res.Snapshot.ATRPercent,
		MarketContext: res.Narrative.MarketContext,
	}
}

// Recorder persists prediction history for analysis.
type Recorder interface {
	RecordPrediction(rec *PredictionRecord) error
	Recent(limit int) ([]PredictionRecord, error)
	Close() error
}

// Open returns a SQLite recorder for path, or a NoopRecorder when path is
// empty.
func Open(path string) (Recorder, error) {
	if path == "" {
		return NewNoopRecorder(), nil
	}
	return NewSQLiteRecorder(path)
}
