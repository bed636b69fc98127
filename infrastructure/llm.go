package infrastructure

import (
	"context"
	"fmt"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation with the model.
type Message struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// LLM completes a conversation and returns the model's raw text reply.
type LLM interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// NewLLM returns the client for cfg.LLMProvider.
func NewLLM(ctx context.Context, cfg Config) (LLM, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModels)
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
