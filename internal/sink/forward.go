package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"BTCForecaster/internal/model"
)

// Payload is the structured result sent downstream.
type Payload struct {
	Prediction    float64  `json:"prediction"`
	Trend         string   `json:"trend"`
	RSI           float64  `json:"rsi"`
	EMAShort      float64  `json:"ema_short"`
	EMALong       float64  `json:"ema_long"`
	ATRPercentage float64  `json:"atr_percentage"`
	MarketContext *float64 `json:"market_context"`
}

// NewPayload builds the downstream payload of a run.
func NewPayload(res *model.RunResult) Payload {
	return Payload{
		Prediction:    res.Forecast.PredictedPrice,
		Trend:         string(res.Narrative.Trend),
		RSI:           res.Snapshot.RSI,
		EMAShort:      res.Snapshot.EMAShort,
		EMALong:       res.Snapshot.EMALong,
		ATRPercentage: res.Snapshot.ATRPercent,
		MarketContext: res.Narrative.MarketContext,
	}
}

// Forwarder POSTs payloads to a downstream consumer.
type Forwarder struct {
	URL    string
	Token  string
	Client *http.Client
}

// NewForwarder returns nil when rawURL is empty.
func NewForwarder(rawURL, token, proxyURL string, timeout time.Duration) *Forwarder {
	if rawURL == "" {
		return nil
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Forwarder{
		URL:   rawURL,
		Token: token,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Forward delivers p. Any non-2xx status is a failure.
func (f *Forwarder) Forward(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", f.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("downstream status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
