package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"BTCForecaster/internal/config"
	"BTCForecaster/internal/logger"
)

var (
	configPath string
	cfg        *config.Config
)

// rootCmd is the base command for the forecaster CLI.
var rootCmd = &cobra.Command{
	Use:   "forecaster",
	Short: "BTC next-close forecaster",
	Long: `forecaster loads the enriched BTC feature table, runs the trained sequence
model over the latest window and publishes the forecast with a trend/risk
explanation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(config.Path(configPath))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if _, err := logger.Setup(logger.Config{
			Level:      c.Log.Level,
			Format:     c.Log.Format,
			File:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
		}, os.Stderr); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or "+config.DefaultPath+")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("forecaster failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
