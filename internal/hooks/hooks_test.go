package hooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BTCForecaster/internal/model"
)

type fakeHook struct {
	name string
	err  error
	runs int
}

func (f *fakeHook) Name() string { return f.name }

func (f *fakeHook) Run(context.Context, *model.RunResult) error {
	f.runs++
	return f.err
}

func result() *model.RunResult {
	return &model.RunResult{
		RunID:     "run-1",
		Forecast:  model.ForecastResult{PredictedPrice: 102.34},
		Narrative: model.Narrative{Trend: model.TrendBullish, Risk: model.RiskMedium, Delta: 2.34, Lines: []string{"x"}},
	}
}

func TestRunAll_ContinuesAfterFailure(t *testing.T) {
	a := &fakeHook{name: "a", err: errors.New("boom")}
	b := &fakeHook{name: "b"}
	failed := RunAll(context.Background(), []Hook{a, b}, result())
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 1, b.runs)
}

func TestNewTelegramHook_DisabledWithoutCredentials(t *testing.T) {
	assert.Nil(t, NewTelegramHook("", "1", "", 0))
	assert.Nil(t, NewTelegramHook("tok", "", "", 0))
	assert.NotNil(t, NewTelegramHook("tok", "1", "", 0))
}

func TestTelegramHook_Run(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		assert.Equal(t, "/bottok/sendMessage", r.URL.Path)
	}))
	defer srv.Close()

	h := NewTelegramHook("tok", "1", "", 0)
	h.Notifier.APIBase = srv.URL
	require.NoError(t, h.Run(context.Background(), result()))
	assert.True(t, hit)
}

func TestCommandHook_ExportsResult(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	out := filepath.Join(t.TempDir(), "out.txt")
	h := &CommandHook{
		Command: "/bin/sh",
		Args:    []string{"-c", `printf "%s %s %s" "$FORECAST_PREDICTION" "$FORECAST_TREND" "$FORECAST_RUN_ID" > "$0"`, out},
		Timeout: 5 * time.Second,
	}
	require.NoError(t, h.Run(context.Background(), result()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "102.34 Bullish run-1", string(data))
}

func TestCommandHook_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	h := &CommandHook{Command: "/bin/sh", Args: []string{"-c", "exit 3"}}
	assert.Error(t, h.Run(context.Background(), result()))
}
