package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"BTCForecaster/internal/model"
)

// KrakenFetcher implements Fetcher using the Kraken public OHLC endpoint.
type KrakenFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewKrakenFetcher creates a new fetcher with optional proxy support.
func NewKrakenFetcher(baseURL, proxyURL string, timeout time.Duration) *KrakenFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &KrakenFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *KrakenFetcher) Name() string { return "kraken" }

// krakenOHLC is the response envelope. Result holds one array of bars keyed
// by the canonical pair name plus a "last" cursor.
type krakenOHLC struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

func (f *KrakenFetcher) FetchBars(ctx context.Context, pair string, interval int) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/0/public/OHLC?pair=%s&interval=%d", f.BaseURL, url.QueryEscape(pair), interval)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kraken fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kraken read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kraken: status %d, body: %s", resp.StatusCode, string(body))
	}

	var env krakenOHLC
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("kraken decode: %w", err)
	}
	if len(env.Error) > 0 {
		return nil, fmt.Errorf("kraken api error: %s", strings.Join(env.Error, "; "))
	}

	var raw json.RawMessage
	for k, v := range env.Result {
		if k != "last" {
			raw = v
			break
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("kraken: no data returned for %s", pair)
	}
	return parseKrakenBars(raw)
}

// parseKrakenBars decodes [time, open, high, low, close, vwap, volume, count]
// rows. Prices arrive as strings, time and count as numbers.
func parseKrakenBars(raw json.RawMessage) ([]model.OHLCV, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows [][]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("kraken decode bars: %w", err)
	}

	bars := make([]model.OHLCV, 0, len(rows))
	for i, r := range rows {
		if len(r) < 8 {
			return nil, fmt.Errorf("kraken bar %d has %d fields, want 8", i, len(r))
		}
		var vals [8]float64
		for j := 0; j < 8; j++ {
			v, err := toFloat(r[j])
			if err != nil {
				return nil, fmt.Errorf("kraken bar %d field %d: %w", i, j, err)
			}
			vals[j] = v
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(int64(vals[0]), 0).UTC(),
			Open:   vals[1],
			High:   vals[2],
			Low:    vals[3],
			Close:  vals[4],
			VWAP:   vals[5],
			Volume: vals[6],
			Count:  int64(vals[7]),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
