package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BTCForecaster/internal/model"
)

func krakenBody(n int) string {
	var b strings.Builder
	b.WriteString(`{"error":[],"result":{"XXBTZUSD":[`)
	start := int64(1700000000)
	for i := n - 1; i >= 0; i-- { // newest first to exercise sorting
		c := 30000 + float64(i)*10
		fmt.Fprintf(&b, `[%d,"%.1f","%.1f","%.1f","%.1f","%.1f","12.5",%d]`,
			start+int64(i)*86400, c-5, c+20, c-20, c, c, 100+i)
		if i > 0 {
			b.WriteString(",")
		}
	}
	fmt.Fprintf(&b, `],"last":%d}}`, start+int64(n-1)*86400)
	return b.String()
}

func krakenServer(t *testing.T, body string) *KrakenFetcher {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/OHLC", r.URL.Path)
		assert.Equal(t, "XXBTZUSD", r.URL.Query().Get("pair"))
		assert.Equal(t, "1440", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewKrakenFetcher(srv.URL, "", 5*time.Second)
}

func TestKrakenFetcher_FetchBars(t *testing.T) {
	f := krakenServer(t, krakenBody(3))
	bars, err := f.FetchBars(context.Background(), "XXBTZUSD", 1440)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), bars[0].Time)
	assert.True(t, bars[1].Time.After(bars[0].Time))
	assert.Equal(t, 30000.0, bars[0].Close)
	assert.Equal(t, 30020.0, bars[0].High)
	assert.Equal(t, 12.5, bars[0].Volume)
	assert.Equal(t, int64(100), bars[0].Count)
}

func TestKrakenFetcher_APIError(t *testing.T) {
	f := krakenServer(t, `{"error":["EQuery:Unknown asset pair"]}`)
	_, err := f.FetchBars(context.Background(), "XXBTZUSD", 1440)
	assert.ErrorContains(t, err, "EQuery:Unknown asset pair")
}

func TestKrakenFetcher_NoData(t *testing.T) {
	f := krakenServer(t, `{"error":[],"result":{"last":0}}`)
	_, err := f.FetchBars(context.Background(), "XXBTZUSD", 1440)
	assert.Error(t, err)
}

func TestKrakenFetcher_BadBar(t *testing.T) {
	f := krakenServer(t, `{"error":[],"result":{"XXBTZUSD":[[1700000000,"x","1","1","1","1","1",1]],"last":0}}`)
	_, err := f.FetchBars(context.Background(), "XXBTZUSD", 1440)
	assert.Error(t, err)
}

func TestKrakenFetcher_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err := NewKrakenFetcher(srv.URL, "", time.Second).FetchBars(context.Background(), "XXBTZUSD", 1440)
	assert.ErrorContains(t, err, "status 502")
}

func TestBuildTable_DropsWarmup(t *testing.T) {
	bars := generateMockBars(30000, 150)
	table, err := BuildTable(bars, DefaultPeriods)
	require.NoError(t, err)

	// EMA(100) is the longest warm-up: rows 0..98 are dropped.
	assert.Equal(t, 51, table.Len())
	assert.Equal(t, bars[99].Time, table.Rows[0].Time)
	for _, r := range table.Rows {
		assert.Greater(t, r.ATR, 0.0)
		assert.GreaterOrEqual(t, r.RSI, 0.0)
		assert.LessOrEqual(t, r.RSI, 100.0)
	}
}

func TestBuildTable_TooFewBars(t *testing.T) {
	_, err := BuildTable(generateMockBars(30000, 50), DefaultPeriods)
	assert.ErrorIs(t, err, model.ErrData)
}

func TestCollector_Enrich(t *testing.T) {
	c := NewCollector(krakenServer(t, krakenBody(120)), "XXBTZUSD", 1440, DefaultPeriods)
	table, err := c.Enrich(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21, table.Len())

	last, err := table.Last()
	require.NoError(t, err)
	assert.Equal(t, 31190.0, last.Close)
	// Closes rise monotonically, so there are no losses.
	assert.Equal(t, 100.0, last.RSI)
	assert.Greater(t, last.EMAShort, last.EMALong)
}

func TestCollector_FetchError(t *testing.T) {
	boom := errors.New("boom")
	c := NewCollector(&MockFetcher{Err: boom}, "XXBTZUSD", 1440, DefaultPeriods)
	_, err := c.Enrich(context.Background())
	assert.ErrorIs(t, err, boom)
}
