// Package narrative derives the trend, risk and explanation text attached to
// a forecast.
package narrative

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"BTCForecaster/internal/dominance"
	"BTCForecaster/internal/model"
)

// Build derives the narrative from a forecast, the latest snapshot and an
// optional market context value. It is a pure function.
func Build(fc model.ForecastResult, snap model.MarketSnapshot, marketContext *float64) model.Narrative {
	n := model.Narrative{
		Trend: ClassifyTrend(snap.EMAShort, snap.EMALong, snap.RSI),
		Risk:  ClassifyRisk(snap.ATRPercent),
		Delta: model.Round2(fc.PredictedPrice - snap.Close),
	}
	if marketContext != nil {
		v := *marketContext
		n.MarketContext = &v
	}

	emaLine := "EMA short < EMA long: pressure on price"
	if snap.EMAShort > snap.EMALong {
		emaLine = "EMA short > EMA long: growth likely"
	}
	rsiLine := "RSI >= 70: correction possible"
	if snap.RSI < Overbought {
		rsiLine = "RSI < 70: market not overbought"
	}

	lines := []string{
		"BTC Forecast: $" + num(fc.PredictedPrice),
		"Trend: " + string(n.Trend),
		fmt.Sprintf("RSI=%s, EMA short=%s, EMA long=%s", num(snap.RSI), num(snap.EMAShort), num(snap.EMALong)),
		emaLine,
		rsiLine,
		"",
	}
	if n.MarketContext != nil {
		lines = append(lines,
			"BTC Dominance: "+num(*n.MarketContext)+"%",
			"Market context: "+ContextCommentary(*n.MarketContext),
			"",
		)
	}

	arrow := "down"
	if n.Delta > 0 {
		arrow = "up"
	}
	lines = append(lines,
		fmt.Sprintf("Volatility: ATR=%s (%s%%) -> %s risk", num(snap.ATR), num(snap.ATRPercent), n.Risk),
		"",
		fmt.Sprintf("Now: $%s -> %s, delta = %s", num(snap.Close), arrow, num(n.Delta)),
	)
	n.Lines = lines
	return n
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Composer fetches the optional market context and builds the narrative.
type Composer struct {
	Source  dominance.Source // nil disables the market context section
	Timeout time.Duration
}

// Compose never fails: an unavailable market context only drops its section.
func (c *Composer) Compose(ctx context.Context, fc model.ForecastResult, snap model.MarketSnapshot) model.Narrative {
	return Build(fc, snap, c.marketContext(ctx))
}

func (c *Composer) marketContext(ctx context.Context) *float64 {
	if c == nil || c.Source == nil {
		return nil
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	v, err := c.Source.Fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("market context unavailable, omitting section")
		return nil
	}
	log.Debug().Float64("btc_dominance", v).Msg("market context fetched")
	return &v
}
