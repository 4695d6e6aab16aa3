// Package factory builds the configured LLM provider.
package factory

import (
	"github.com/newthinker/cryptosignal/internal/config"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/llm"
	"github.com/newthinker/cryptosignal/internal/llm/claude"
	"github.com/newthinker/cryptosignal/internal/llm/ollama"
	"github.com/newthinker/cryptosignal/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	case "":
		return nil, core.Errorf(core.ErrConfigMissing, "no LLM provider configured")
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown LLM provider: %s", cfg.Provider)
	}
}
