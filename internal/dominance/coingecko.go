// Package dominance fetches BTC market-cap dominance, the optional market
// context attached to a forecast narrative.
package dominance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"BTCForecaster/internal/model"
)

// DefaultBaseURL is the public CoinGecko API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Source yields the current BTC dominance percentage.
type Source interface {
	Fetch(ctx context.Context) (float64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (float64, error)

// Fetch calls f(ctx).
func (f SourceFunc) Fetch(ctx context.Context) (float64, error) { return f(ctx) }

// CoinGecko reads data.market_cap_percentage.btc from the /global endpoint.
type CoinGecko struct {
	BaseURL string
	Client  *http.Client
}

// NewCoinGecko creates a client with the given timeout and optional proxy.
func NewCoinGecko(baseURL, proxyURL string, timeout time.Duration) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &CoinGecko{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type globalResponse struct {
	Data struct {
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

// Fetch returns BTC dominance rounded to 2 decimals. Every failure wraps
// model.ErrSignalUnavailable.
func (c *CoinGecko) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/global", nil)
	if err != nil {
		return 0, fmt.Errorf("coingecko request: %w: %w", model.ErrSignalUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coingecko fetch: %w: %w", model.ErrSignalUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("coingecko read body: %w: %w", model.ErrSignalUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko: status %d: %w", resp.StatusCode, model.ErrSignalUnavailable)
	}

	var g globalResponse
	if err := json.Unmarshal(body, &g); err != nil {
		return 0, fmt.Errorf("coingecko decode: %w: %w", model.ErrSignalUnavailable, err)
	}
	btc, ok := g.Data.MarketCapPercentage["btc"]
	if !ok {
		return 0, fmt.Errorf("coingecko: no btc dominance in response: %w", model.ErrSignalUnavailable)
	}
	return model.Round2(btc), nil
}
