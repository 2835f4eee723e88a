package llmclient

import (
	"context"
	"fmt"
	"strings"
)

// Provider selects and parameterises a backend for New.
type Provider struct {
	Name       string // gemini | ollama
	Model      string
	APIKey     string
	Host       string
	TokenLimit int
}

// New builds the provider client named by p.Name.
func New(ctx context.Context, p Provider) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(p.Name)) {
	case "", "gemini":
		return NewGeminiClient(ctx, p.APIKey, p.Model, p.TokenLimit)
	case "ollama":
		return NewOllamaClient(p.Host, p.Model, p.TokenLimit)
	default:
		return nil, fmt.Errorf("llmclient: unknown provider %q", p.Name)
	}
}
