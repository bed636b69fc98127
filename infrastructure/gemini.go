package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
	models []string
}

// NewGeminiClient creates a client that tries models in order until one answers.
func NewGeminiClient(ctx context.Context, apiKey string, models []string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	if len(models) == 0 {
		models = defaultGeminiModels
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, models: models}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
		TopP:        genai.Ptr[float32](0.8),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	var lastError error
	for _, model := range g.models {
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			lastError = fmt.Errorf("model %s: %w", model, err)
			continue
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			lastError = fmt.Errorf("model %s: empty response", model)
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("all models failed: %w", lastError)
}
