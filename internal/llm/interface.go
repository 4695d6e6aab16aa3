// Package llm abstracts the chat-completion backends used by the LLM
// direction predictor.
package llm

import (
	"context"
	"strings"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// maxTokens falls back to 1024 when unset.
func (r ChatRequest) maxTokens() int {
	if r.MaxTokens <= 0 {
		return 1024
	}
	return r.MaxTokens
}

// MaxTokens returns the effective completion budget.
func MaxTokens(r ChatRequest) int { return r.maxTokens() }

// ExtractJSON returns the outermost JSON object in content, dropping any
// markdown fences or prose the model wrapped around it.
func ExtractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(content)
	}
	return content[start : end+1]
}
