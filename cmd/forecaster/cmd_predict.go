package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"BTCForecaster/internal/notifier"
	"BTCForecaster/internal/pipeline"
)

var predictStrict bool

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run the forecast pipeline once and print the report",
	Long: `Run the forecast pipeline once: load the feature table, forecast the next
close, compose the narrative, write every configured sink and run post-run
hooks. Sink and hook failures are logged; the command only fails on data or
model errors unless --strict is set.`,
	Example: `  forecaster predict
  forecaster predict --config /etc/forecaster.yaml --strict`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().BoolVar(&predictStrict, "strict", false, "exit non-zero when any sink fails")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, closeFn, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("close recorder")
		}
	}()

	out, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatReport(out.Result.Narrative))

	if predictStrict && len(out.SinkErrors) > 0 {
		return fmt.Errorf("%d sink(s) failed", len(out.SinkErrors))
	}
	return nil
}
