package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"BTCForecaster/internal/calculator"
	"BTCForecaster/internal/model"
)

// DefaultATRWindow is the lookback used when the source has no atr column.
const DefaultATRWindow = 14

// TimeLayout is the timestamp format written to and preferred in CSV sources.
const TimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{TimeLayout, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Loader reads the enriched feature table from a CSV file.
type Loader struct {
	Path           string
	SequenceLength int
	ATRWindow      int
}

// Stats describes what cleaning did to the source.
type Stats struct {
	SourceRows  int
	DroppedGaps int
	Duplicates  int
	ATRComputed bool
	ATRWarmup   int
}

// Load opens the file and returns the cleaned table.
func (l *Loader) Load() (*model.FeatureTable, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open feature table %s: %w: %w", l.Path, model.ErrData, err)
	}
	defer f.Close()

	table, stats, err := Read(f, l.SequenceLength, l.ATRWindow)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", l.Path).
		Int("rows", table.Len()).
		Int("source_rows", stats.SourceRows).
		Int("dropped_gaps", stats.DroppedGaps).
		Int("duplicates", stats.Duplicates).
		Bool("atr_computed", stats.ATRComputed).
		Int("atr_warmup", stats.ATRWarmup).
		Msg("feature table loaded")
	return table, nil
}

// Read parses a CSV source into a FeatureTable. Rows with missing or
// unparseable values in required columns are dropped, never imputed. If the
// atr column is absent it is computed from high/low/close over atrWindow
// periods before any gap row is dropped, and the warm-up rows are dropped
// afterwards. At least seqLen+1 usable rows must remain.
func Read(r io.Reader, seqLen, atrWindow int) (*model.FeatureTable, Stats, error) {
	var stats Stats
	if atrWindow <= 0 {
		atrWindow = DefaultATRWindow
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, fmt.Errorf("empty feature table source: %w", model.ErrData)
		}
		return nil, stats, fmt.Errorf("read header: %w: %w", model.ErrData, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	if _, ok := idx[model.ColTime]; !ok {
		return nil, stats, fmt.Errorf("missing column %q: %w", model.ColTime, model.ErrData)
	}
	var missing []string
	for _, col := range model.RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, stats, fmt.Errorf("missing required columns %v: %w", missing, model.ErrData)
	}
	_, hasATR := idx[model.ColATR]

	rows := make([]parsedRow, 0, 512)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w: %w", stats.SourceRows+1, model.ErrData, err)
		}
		stats.SourceRows++

		row, ok := parseRow(rec, idx, hasATR)
		if !ok {
			stats.DroppedGaps++
			continue
		}
		rows = append(rows, row)
	}

	rows, stats.Duplicates = orderRows(rows)

	var atr []float64
	if !hasATR {
		atr, err = computeATR(rows, atrWindow)
		if err != nil {
			return nil, stats, err
		}
		stats.ATRComputed = true
	}

	out := make([]model.FeatureRow, 0, len(rows))
	for i, r := range rows {
		if !r.complete {
			stats.DroppedGaps++
			continue
		}
		if atr != nil {
			if math.IsNaN(atr[i]) {
				stats.ATRWarmup++
				continue
			}
			r.ATR = atr[i]
		}
		out = append(out, r.FeatureRow)
	}

	if len(out) < seqLen+1 {
		return nil, stats, fmt.Errorf("%d usable rows, need at least %d: %w", len(out), seqLen+1, model.ErrData)
	}
	return &model.FeatureTable{Rows: out}, stats, nil
}

// parsedRow is a source row with a valid timestamp and high/low/close.
// complete is false when any other required column is missing.
type parsedRow struct {
	model.FeatureRow
	complete bool
}

// parseRow rejects rows that cannot take part in the true-range series.
// Gaps in the remaining required columns only clear complete.
func parseRow(rec []string, idx map[string]int, hasATR bool) (parsedRow, bool) {
	var row parsedRow

	ts, ok := field(rec, idx, model.ColTime)
	if !ok {
		return row, false
	}
	t, err := parseTime(ts)
	if err != nil {
		return row, false
	}
	row.Time = t

	if !readInto(rec, idx, []column{
		{model.ColClose, &row.Close},
		{model.ColHigh, &row.High},
		{model.ColLow, &row.Low},
	}) {
		return row, false
	}

	rest := []column{
		{model.ColEMAShort, &row.EMAShort},
		{model.ColEMALong, &row.EMALong},
		{model.ColRSI, &row.RSI},
	}
	if hasATR {
		rest = append(rest, column{model.ColATR, &row.ATR})
	}
	row.complete = readInto(rec, idx, rest)

	// Optional columns keep their zero value when absent.
	row.Open, _ = number(rec, idx, model.ColOpen)
	row.VWAP, _ = number(rec, idx, model.ColVWAP)
	row.Volume, _ = number(rec, idx, model.ColVolume)
	if c, ok := number(rec, idx, model.ColCount); ok {
		row.Count = int64(c)
	}
	return row, true
}

type column struct {
	name string
	dst  *float64
}

func readInto(rec []string, idx map[string]int, cols []column) bool {
	ok := true
	for _, c := range cols {
		v, found := number(rec, idx, c.name)
		if !found {
			ok = false
			continue
		}
		*c.dst = v
	}
	return ok
}

func field(rec []string, idx map[string]int, col string) (string, bool) {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return "", false
	}
	s := strings.TrimSpace(rec[i])
	return s, s != ""
}

func number(rec []string, idx map[string]int, col string) (float64, bool) {
	s, ok := field(rec, idx, col)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// orderRows sorts by time and keeps the last row of each duplicated
// timestamp so the index is strictly increasing.
func orderRows(rows []parsedRow) ([]parsedRow, int) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	out := rows[:0]
	dups := 0
	for _, r := range rows {
		if n := len(out); n > 0 && out[n-1].Time.Equal(r.Time) {
			out[n-1] = r
			dups++
			continue
		}
		out = append(out, r)
	}
	return out, dups
}

// computeATR runs over every row with high/low/close, including rows that
// are dropped later for gaps elsewhere.
func computeATR(rows []parsedRow, window int) ([]float64, error) {
	highs := make([]float64, len(rows))
	lows := make([]float64, len(rows))
	closes := make([]float64, len(rows))
	for i, r := range rows {
		highs[i], lows[i], closes[i] = r.High, r.Low, r.Close
	}
	atr, err := calculator.CalculateATR(highs, lows, closes, window)
	if err != nil {
		return nil, fmt.Errorf("compute atr: %w: %w", model.ErrData, err)
	}
	return atr, nil
}
