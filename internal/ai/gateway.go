// Package ai talks to the hosted Gemini model for transaction extraction,
// call scripts and the chat advisor.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var (
	ErrEmptyResponse = errors.New("empty response from model")
	ErrNotConfigured = errors.New("AI features are not configured")
)

// Model is the subset of the genai client used here.
type Model interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Gateway struct {
	models Model
	model  string
}

// NewGateway creates a Gemini API client authenticated with apiKey.
func NewGateway(ctx context.Context, apiKey, model string) (*Gateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewGatewayWithModel(client.Models, model), nil
}

func NewGatewayWithModel(models Model, model string) *Gateway {
	return &Gateway{models: models, model: model}
}

func (g *Gateway) generateText(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if g == nil || g.models == nil {
		return "", ErrNotConfigured
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func jsonConfig(system string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		ResponseMIMEType:  "application/json",
		Temperature:       float32Ptr(0.1),
	}
}

func float32Ptr(v float32) *float32 {
	return &v
}

// cleanModelJSON strips Markdown fences and any prose around the first JSON
// array or object in raw.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closing := "]"
	if s[start] == '{' {
		closing = "}"
	}
	if end := strings.LastIndex(s, closing); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
