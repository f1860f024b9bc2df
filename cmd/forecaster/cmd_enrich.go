package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"BTCForecaster/internal/dataset"
	"BTCForecaster/internal/pipeline"
)

var enrichOutput string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch OHLC bars from Kraken and write the enriched feature table",
	Long: `Fetch OHLC bars for the configured pair, compute EMA short/long, RSI and ATR,
drop warm-up rows and write the CSV the predict command reads.`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	enrichCmd.Flags().StringVarP(&enrichOutput, "output", "o", "", "output CSV (default data.csv_path)")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := pipeline.NewCollector(cfg).Enrich(ctx)
	if err != nil {
		return err
	}
	path := enrichOutput
	if path == "" {
		path = cfg.Data.CSVPath
	}
	if err := dataset.Save(path, table); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("rows", table.Len()).Msg("feature table written")
	return nil
}
