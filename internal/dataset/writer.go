package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"BTCForecaster/internal/model"
)

var csvHeader = []string{
	model.ColTime, model.ColOpen, model.ColHigh, model.ColLow, model.ColClose,
	model.ColVWAP, model.ColVolume, model.ColCount,
	model.ColEMAShort, model.ColEMALong, model.ColRSI, model.ColATR,
}

// Write encodes the table in the layout Read expects.
func Write(w io.Writer, table *model.FeatureTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range table.Rows {
		rec := []string{
			r.Time.UTC().Format(TimeLayout),
			ftoa(r.Open), ftoa(r.High), ftoa(r.Low), ftoa(r.Close),
			ftoa(r.VWAP), ftoa(r.Volume), strconv.FormatInt(r.Count, 10),
			ftoa(r.EMAShort), ftoa(r.EMALong), ftoa(r.RSI), ftoa(r.ATR),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the table to path, replacing any previous file atomically.
func Save(path string, table *model.FeatureTable) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := Write(f, table); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
