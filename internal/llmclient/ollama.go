package llmclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JexSrs/go-ollama"
)

// OllamaClient talks to a self-hosted Ollama daemon.
type OllamaClient struct {
	client   *ollama.Ollama
	model    string
	tokenCap int
}

func NewOllamaClient(host, model string, tokenCap int) (*OllamaClient, error) {
	u, err := url.Parse(strings.TrimSpace(host))
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid host %q: %w", host, err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}
	if tokenCap <= 0 {
		tokenCap = 8000
	}
	return &OllamaClient{client: ollama.New(*u), model: model, tokenCap: tokenCap}, nil
}

func (o *OllamaClient) Name() string { return "Ollama:" + o.model }
func (o *OllamaClient) Close() error { return nil }
func (o *OllamaClient) CountTokens(text string) int {
	return CountTokens(text)
}
func (o *OllamaClient) TokenCapacity() int { return o.tokenCap }

type ollamaResult struct {
	res *ollama.GenerateResponse
	err error
}

// Generate uses the non-streaming generate endpoint. go-ollama builds its
// requests without a context, so the call runs in its own goroutine and
// Generate returns as soon as ctx is done; the abandoned request finishes in
// the background.
func (o *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	done := make(chan ollamaResult, 1)
	go func() {
		res, err := o.client.Generate(
			o.client.Generate.WithModel(o.model),
			o.client.Generate.WithPrompt(prompt),
		)
		done <- ollamaResult{res: res, err: err}
	}()

	var r ollamaResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return "", fmt.Errorf("ollama generate: %w", r.err)
	}
	if !r.res.Done {
		return "", fmt.Errorf("ollama generate: response not finished")
	}
	if strings.TrimSpace(r.res.Response) == "" {
		return "", ErrEmptyResponse
	}
	return r.res.Response, nil
}
