// Package hooks holds optional post-run actions. They run after the result
// has been published and never change it.
package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"BTCForecaster/internal/model"
	"BTCForecaster/internal/notifier"
)

// Hook is a side effect triggered by a completed run.
type Hook interface {
	Name() string
	Run(ctx context.Context, res *model.RunResult) error
}

// RunAll runs every hook in order, logging failures. It returns the number
// of hooks that failed.
func RunAll(ctx context.Context, hs []Hook, res *model.RunResult) int {
	failed := 0
	for _, h := range hs {
		if err := h.Run(ctx, res); err != nil {
			failed++
			log.Error().Err(err).Str("hook", h.Name()).Msg("post-run hook failed")
			continue
		}
		log.Info().Str("hook", h.Name()).Msg("post-run hook done")
	}
	return failed
}

// TelegramHook sends the report to a Telegram chat.
type TelegramHook struct {
	Notifier   *notifier.TelegramNotifier
	MaxRetries int
}

// NewTelegramHook returns nil when the token or chat id is missing.
func NewTelegramHook(token, chatID, proxyURL string, maxRetries int) *TelegramHook {
	if token == "" || chatID == "" {
		return nil
	}
	return &TelegramHook{
		Notifier:   notifier.NewTelegramNotifier(token, chatID, proxyURL),
		MaxRetries: maxRetries,
	}
}

func (h *TelegramHook) Name() string { return "telegram" }

func (h *TelegramHook) Run(ctx context.Context, res *model.RunResult) error {
	return h.Notifier.SendWithRetry(ctx, notifier.FormatTelegram(res), h.MaxRetries)
}

// CommandHook runs an external command with the result exposed through
// FORECAST_* environment variables.
type CommandHook struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func (h *CommandHook) Name() string { return "command" }

func (h *CommandHook) Run(ctx context.Context, res *model.RunResult) error {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, h.Command, h.Args...)
	cmd.Env = append(os.Environ(),
		"FORECAST_RUN_ID="+res.RunID,
		"FORECAST_PREDICTION="+strconv.FormatFloat(res.Forecast.PredictedPrice, 'f', -1, 64),
		"FORECAST_TREND="+string(res.Narrative.Trend),
		"FORECAST_RISK="+string(res.Narrative.Risk),
		"FORECAST_DELTA="+strconv.FormatFloat(res.Narrative.Delta, 'f', -1, 64),
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", h.Command, err, out)
	}
	log.Debug().Str("command", h.Command).Bytes("output", out).Msg("command hook output")
	return nil
}
