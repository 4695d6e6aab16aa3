package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/alert"
	"github.com/newthinker/cryptosignal/internal/config"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
	"github.com/newthinker/cryptosignal/internal/series/seriestest"
	"github.com/newthinker/cryptosignal/internal/storage/report"
)

type stubProvider struct {
	s   *series.Series
	err error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchSeries(context.Context, string, string, int) (*series.Series, error) {
	return p.s, p.err
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s := config.Defaults()
	s.Sinks.Console = false
	s.Monitor.StateFile = filepath.Join(t.TempDir(), "state.yaml")
	return s
}

func newApp(t *testing.T, s *config.Settings) *App {
	t.Helper()
	a, err := New(context.Background(), s, WithProvider(&stubProvider{s: seriestest.Linear(t, 200, 100, 1)}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_Defaults(t *testing.T) {
	a := newApp(t, testSettings(t))

	assert.NotNil(t, a.Pipeline())
	assert.NotNil(t, a.Backtester())
	assert.Equal(t, 0, a.Notifiers().Len())
	assert.Equal(t, time.Minute, a.Monitor().Interval())
	assert.Equal(t, 1000.0, a.Pipeline().Account().Balance)
}

func TestNew_Notifiers(t *testing.T) {
	s := testSettings(t)
	s.Sinks.Notify.Webhook.URL = "http://localhost:9/hook"
	s.Sinks.Notify.Telegram.BotToken = "token"
	s.Sinks.Notify.Telegram.ChatID = "42"

	a := newApp(t, s)
	assert.Equal(t, 2, a.Notifiers().Len())
}

func TestRefresh_HealthRulesNotifyWebhook(t *testing.T) {
	var messages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["type"] == "health" {
			messages = append(messages, body["message"].(string))
		}
	}))
	defer srv.Close()

	s := testSettings(t)
	s.Sinks.Notify.Webhook.URL = srv.URL
	s.Sinks.Health.Rules = []alert.Rule{{Name: "failing", Expr: "failed >= 1", Severity: "critical"}}

	a, err := New(context.Background(), s, WithProvider(&stubProvider{err: core.ErrFetchFailed}))
	require.NoError(t, err)
	defer a.Close()

	_, _, err = a.Add("BTCUSDT", "1h")
	require.NoError(t, err)
	refresher{a.Monitor()}.Tick(context.Background())

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "[CRITICAL] failing")
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Settings)
		want   *core.Error
	}{
		{"unknown profile", func(s *config.Settings) { s.Analysis.Profile = "bogus" }, core.ErrConfigInvalid},
		{"llm without provider", func(s *config.Settings) { s.Predictor.Type = "llm" }, core.ErrConfigMissing},
		{"kafka without topic", func(s *config.Settings) {
			s.Sinks.Kafka.Brokers = []string{"localhost:9092"}
			s.Sinks.Kafka.Topic = ""
		}, core.ErrConfigMissing},
		{"s3 without bucket", func(s *config.Settings) { s.Sinks.Archive.Type = "s3" }, core.ErrConfigMissing},
		{"bad health rule", func(s *config.Settings) {
			s.Sinks.Health.Rules = []alert.Rule{{Name: "x", Expr: "cpu > 1"}}
		}, core.ErrConfigInvalid},
		{"monitor interval too short", func(s *config.Settings) { s.Monitor.Interval = time.Second }, core.ErrInvalidInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings(t)
			tt.mutate(s)
			_, err := New(context.Background(), s, WithProvider(&stubProvider{}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNew_UnknownProviderName(t *testing.T) {
	s := testSettings(t)
	s.Providers = []string{"kraken"}
	_, err := New(context.Background(), s)
	assert.Error(t, err)
}

func TestWatchlist_PersistsAcrossRestarts(t *testing.T) {
	s := testSettings(t)
	a := newApp(t, s)

	item, added, err := a.Add("sol", "4h")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "SOLUSDT", item.Symbol)

	_, added, err = a.Add("SOLUSDT", "4h")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = os.Stat(s.Monitor.StateFile)
	require.NoError(t, err)

	b := newApp(t, s)
	require.NoError(t, b.RestoreState())
	require.Len(t, b.Watchlist(), 1)
	assert.Equal(t, "SOLUSDT", b.Watchlist()[0].Symbol)
	assert.Equal(t, "4h", b.Watchlist()[0].Interval)

	assert.True(t, b.Remove("SOLUSDT", ""))
	assert.False(t, b.Remove("SOLUSDT", ""))

	c := newApp(t, s)
	require.NoError(t, c.RestoreState())
	assert.Empty(t, c.Watchlist())
}

func TestRestoreState_MissingFileUsesDefaults(t *testing.T) {
	a := newApp(t, testSettings(t))
	require.NoError(t, a.RestoreState())
	assert.Len(t, a.Watchlist(), len(config.DefaultState().Symbols))
}

func TestRefresh_FeedsReportsAndArchive(t *testing.T) {
	s := testSettings(t)
	s.Sinks.Archive.Type = "localfs"
	s.Sinks.Archive.Path = t.TempDir()
	a := newApp(t, s)

	_, _, err := a.Add("BTCUSDT", "1h")
	require.NoError(t, err)

	b := refresher{a.Monitor()}.Tick(context.Background())
	require.Len(t, b.Results, 1)
	require.True(t, b.Results[0].OK(), "%v", b.Results[0].Err)

	latest, err := a.Reports().Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, b.ID, latest[0].BatchID)

	var files []string
	err = filepath.WalkDir(s.Sinks.Archive.Path, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return err
	})
	require.NoError(t, err)
	assert.Len(t, files, 1)

	n, err := a.Reports().Count(context.Background(), report.ListFilter{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, a.Stats()["reports"])
}

func TestServer_Routes(t *testing.T) {
	s := testSettings(t)
	s.Server.APIKey = "secret"
	a := newApp(t, s)
	_, _, err := a.Add("ETHUSDT", "1h")
	require.NoError(t, err)

	srv, err := a.Server()
	require.NoError(t, err)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ETHUSDT")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze/BTCUSDT", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newApp(t, testSettings(t))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx, false) }()

	require.Eventually(t, a.Monitor().Running, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
