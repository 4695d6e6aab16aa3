package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	s := Defaults()

	assert.Equal(t, 1000.0, s.Account.Balance)
	assert.Equal(t, 2.0, s.Account.RiskPercent)
	assert.Equal(t, "crypto", s.Analysis.Profile)
	assert.Equal(t, "basic", s.Analysis.Fusion)
	assert.Equal(t, 200, s.Analysis.Limit)
	assert.Equal(t, 8.0, s.Analysis.Phase.RangeMaxPct)
	assert.Equal(t, 60*time.Second, s.Monitor.Interval)
	assert.Equal(t, 4, s.Monitor.MaxConcurrency)
	assert.Equal(t, []string{"okx", "binance"}, s.Providers)
	assert.Equal(t, 4*time.Hour, s.Sinks.Notify.Cooldown)
	assert.True(t, s.Sinks.Console)
	assert.NoError(t, s.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
account:
  balance: 5000
analysis:
  fusion: extended
  phase:
    high_atr_pct: 6
monitor:
  interval: 2m
providers: [binance]
sinks:
  notify:
    webhook:
      url: https://hooks.example.com/signal
  health:
    rules:
      - name: failing
        expr: failed_pct > 50
        for: 5m
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, s.Account.Balance)
	assert.Equal(t, 2.0, s.Account.RiskPercent, "unset keys keep defaults")
	assert.Equal(t, "extended", s.Analysis.Fusion)
	assert.Equal(t, 6.0, s.Analysis.Phase.HighATRPct)
	assert.Equal(t, 8.0, s.Analysis.Phase.RangeMaxPct)
	assert.Equal(t, 2*time.Minute, s.Monitor.Interval)
	assert.Equal(t, []string{"binance"}, s.Providers)
	assert.Equal(t, "https://hooks.example.com/signal", s.Sinks.Notify.Webhook.URL)
	require.Len(t, s.Sinks.Health.Rules, 1)
	assert.Equal(t, 5*time.Minute, s.Sinks.Health.Rules[0].For)
	assert.Equal(t, 15*time.Minute, s.Sinks.Health.Cooldown)
}

func TestLoad_EnvExpansionAndOverride(t *testing.T) {
	t.Setenv("TEST_CLAUDE_KEY", "sk-test")
	t.Setenv("CRYPTOSIGNAL_ACCOUNT_BALANCE", "750")
	path := writeFile(t, "config.yaml", `
account:
  balance: 5000
predictor:
  type: llm
  llm:
    provider: claude
    claude:
      api_key: ${TEST_CLAUDE_KEY}
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", s.Predictor.LLM.Claude.APIKey)
	assert.Equal(t, 750.0, s.Account.Balance)
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)

	s, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoad_FallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *core.Error
	}{
		{"corrupt yaml", "account: [balance: {", core.ErrConfigInvalid},
		{"negative balance", "account:\n  balance: -1\n", core.ErrConfigInvalid},
		{"risk above 100", "account:\n  risk_percent: 150\n", core.ErrConfigInvalid},
		{"interval below minimum", "monitor:\n  interval: 10s\n", core.ErrConfigInvalid},
		{"unknown profile", "analysis:\n  profile: exotic\n", core.ErrConfigInvalid},
		{"unknown provider", "providers: [kraken]\n", core.ErrConfigInvalid},
		{"llm without key", "predictor:\n  type: llm\n  llm:\n    provider: openai\n", core.ErrConfigMissing},
		{"unknown notify action", "sinks:\n  notify:\n    actions: [HOLD]\n", core.ErrConfigInvalid},
		{"telegram without chat", "sinks:\n  notify:\n    telegram:\n      bot_token: abc\n", core.ErrConfigInvalid},
		{"health rule without expr", "sinks:\n  health:\n    rules:\n      - name: x\n", core.ErrConfigInvalid},
		{"health rule unknown metric", "sinks:\n  health:\n    rules:\n      - name: x\n        expr: cpu > 1\n", core.ErrConfigInvalid},
		{"s3 without bucket", "sinks:\n  archive:\n    type: s3\n", core.ErrConfigMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(writeFile(t, "config.yaml", tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, Defaults(), s)
			assert.True(t, core.IsConfigError(err))
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	s := LoadOrDefault(writeFile(t, "config.yaml", "account: [oops"), nil)
	assert.Equal(t, Defaults(), s)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".cryptosignal/state.yaml"), ExpandHome("~/.cryptosignal/state.yaml"))
	assert.Equal(t, "/etc/cryptosignal.yaml", ExpandHome("/etc/cryptosignal.yaml"))
}
