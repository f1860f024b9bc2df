package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"BTCForecaster/internal/recorder"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent predictions stored in SQLite",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of predictions to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.Database.SQLitePath == "" {
		log.Warn().Msg("database.sqlite_path is not configured, no history recorded")
	}
	rec, err := recorder.Open(cfg.Database.SQLitePath)
	if err != nil {
		return err
	}
	defer rec.Close()

	recs, err := rec.Recent(historyLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tAS OF\tPREDICTION\tCLOSE\tDELTA\tTREND\tRISK\tBTC.D")
	for _, r := range recs {
		dom := "-"
		if r.MarketContext != nil {
			dom = fmt.Sprintf("%.2f", *r.MarketContext)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%+.2f\t%s\t%s\t%s\n",
			r.RecordedAt.Format("2006-01-02 15:04"), r.AsOf.Format("2006-01-02"),
			r.Prediction, r.Close, r.Delta, r.Trend, r.Risk, dom)
	}
	return w.Flush()
}
