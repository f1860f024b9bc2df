package pipeline

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"BTCForecaster/internal/collector"
	"BTCForecaster/internal/config"
	"BTCForecaster/internal/dataset"
	"BTCForecaster/internal/dominance"
	"BTCForecaster/internal/forecast"
	"BTCForecaster/internal/hooks"
	"BTCForecaster/internal/metrics"
	"BTCForecaster/internal/model"
	"BTCForecaster/internal/narrative"
	"BTCForecaster/internal/recorder"
	"BTCForecaster/internal/scaler"
	"BTCForecaster/internal/sink"
)

// New builds a Runner from configuration. The returned close function
// releases the prediction recorder.
func New(cfg *config.Config) (*Runner, func() error, error) {
	features := cfg.Data.Features
	if len(features) == 0 || features[0] != model.ColClose {
		return nil, nil, fmt.Errorf("first feature must be %q: %w", model.ColClose, model.ErrScalerMismatch)
	}

	sc, err := scaler.Load(cfg.Model.ScalerPath)
	if err != nil {
		return nil, nil, err
	}
	if err := sc.CheckOrder(features); err != nil {
		return nil, nil, err
	}
	m, err := forecast.LoadModel(cfg.Model.Path)
	if err != nil {
		return nil, nil, err
	}
	engine, err := forecast.NewEngine(m, sc, cfg.Data.SequenceLength)
	if err != nil {
		return nil, nil, err
	}

	composer := &narrative.Composer{Timeout: cfg.MarketContext.Timeout}
	if cfg.MarketContext.Enabled {
		composer.Source = dominance.NewCoinGecko(cfg.MarketContext.BaseURL, cfg.Proxy, cfg.MarketContext.Timeout)
	}

	rec, err := recorder.Open(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, database sink disabled")
		rec = recorder.NewNoopRecorder()
	}

	s := &sink.Sink{
		Paths: sink.Paths{
			Latest:  cfg.Output.LatestPath,
			History: cfg.Output.HistoryPath,
			Diff:    cfg.Output.DiffPath,
			Report:  cfg.Output.ReportPath,
		},
		Forwarder: sink.NewForwarder(cfg.Forward.URL, cfg.Forward.Token, cfg.Proxy, cfg.Forward.Timeout),
		Recorder:  rec,
	}

	var hs []hooks.Hook
	if th := hooks.NewTelegramHook(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.MaxRetries); th != nil {
		hs = append(hs, th)
	}
	if cmd := cfg.Hooks.PostRunCommand; len(cmd) > 0 {
		hs = append(hs, &hooks.CommandHook{Command: cmd[0], Args: cmd[1:], Timeout: cfg.Hooks.Timeout})
	}

	r := &Runner{
		Table: &dataset.Loader{
			Path:           cfg.Data.CSVPath,
			SequenceLength: cfg.Data.SequenceLength,
			ATRWindow:      cfg.Data.ATRWindow,
		},
		Engine:          engine,
		Composer:        composer,
		Sink:            s,
		Hooks:           hs,
		Metrics:         metrics.New(),
		MetricsTextfile: cfg.Metrics.TextfilePath,
	}
	return r, rec.Close, nil
}

// NewCollector builds the enrichment collector from configuration.
func NewCollector(cfg *config.Config) *collector.Collector {
	src := cfg.Source
	return collector.NewCollector(
		collector.NewKrakenFetcher(src.BaseURL, cfg.Proxy, src.Timeout),
		src.Pair,
		src.Interval,
		collector.Periods{EMAShort: src.EMAShort, EMALong: src.EMALong, RSI: src.RSIPeriod, ATR: src.ATRPeriod},
	)
}
