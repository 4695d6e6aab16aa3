package factory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/config"
	"github.com/newthinker/cryptosignal/internal/core"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LLMConfig
		want string
	}{
		{"claude", config.LLMConfig{Provider: "claude", Claude: config.ClaudeConfig{APIKey: "test-key", Model: "claude-3-5-haiku-latest"}}, "claude"},
		{"openai", config.LLMConfig{Provider: "openai", OpenAI: config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini"}}, "openai"},
		{"ollama", config.LLMConfig{Provider: "ollama", Ollama: config.OllamaConfig{Endpoint: "http://localhost:11434", Model: "llama3"}}, "ollama"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LLMConfig
		want *core.Error
	}{
		{"unknown", config.LLMConfig{Provider: "unknown"}, core.ErrConfigInvalid},
		{"unset", config.LLMConfig{}, core.ErrConfigMissing},
		{"claude missing key", config.LLMConfig{Provider: "claude"}, core.ErrConfigMissing},
		{"openai missing key", config.LLMConfig{Provider: "openai"}, core.ErrConfigMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
