package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/llm"
	"github.com/newthinker/cryptosignal/internal/series"
)

const llmSystemPrompt = `You are a quantitative crypto market analyst.
Given recent OHLCV bars, predict the direction of the next bar's close.
Respond with a single JSON object:
{"direction": "UP" or "DOWN", "confidence": number between 0 and 100, "reasoning": "one sentence"}`

// LLM asks a chat-completion model for the next-bar direction.
type LLM struct {
	provider llm.Provider
	bars     int
	logger   *zap.Logger
}

// NewLLM creates an LLM-backed predictor showing the model the last bars
// bars (default 30).
func NewLLM(provider llm.Provider, bars int, logger *zap.Logger) *LLM {
	if bars <= 0 {
		bars = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{provider: provider, bars: bars, logger: logger}
}

func (p *LLM) Name() string { return "llm:" + p.provider.Name() }

type llmAnswer struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (p *LLM) Predict(ctx context.Context, s *series.Series) (Prediction, error) {
	if err := s.Require(2); err != nil {
		return Prediction{}, err
	}

	resp, err := p.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: llmSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: p.buildPrompt(s)},
		},
		MaxTokens:   256,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return Prediction{}, core.WrapError(core.ErrPredictFailed, err)
	}

	var answer llmAnswer
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Content)), &answer); err != nil {
		return Prediction{}, core.Errorf(core.ErrPredictFailed, "parsing model answer: %w", err)
	}
	p.logger.Debug("llm prediction",
		zap.String("symbol", s.Symbol()),
		zap.String("direction", answer.Direction),
		zap.Float64("confidence", answer.Confidence),
		zap.String("reasoning", answer.Reasoning),
	)

	return Prediction{
		Direction:  core.Direction(strings.ToUpper(strings.TrimSpace(answer.Direction))),
		Confidence: answer.Confidence,
		Model:      p.Name(),
	}.Validate()
}

func (p *LLM) buildPrompt(s *series.Series) string {
	tail := s.Tail(p.bars)
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s %s, last %d bars (oldest first)\n\n", s.Symbol(), s.Interval(), tail.Len())
	sb.WriteString("time,open,high,low,close,volume\n")
	for _, b := range tail.Bars() {
		fmt.Fprintf(&sb, "%s,%g,%g,%g,%g,%g\n",
			b.Time.UTC().Format("2006-01-02T15:04"), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return sb.String()
}
