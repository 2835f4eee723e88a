package workerruntime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"codesight/internal/config"
	"codesight/internal/llm"
	"codesight/internal/llmclient"
)

const retryBaseDelay = 300 * time.Millisecond

// LLMClients holds one client per model role.
type LLMClients struct {
	Query     llmclient.Client // per-file and whole-codebase query contexts
	Synthesis llmclient.Client // aggregation, summary, question planning
}

func (c LLMClients) Close() error {
	var errs []error
	if c.Query != nil {
		errs = append(errs, c.Query.Close())
	}
	if c.Synthesis != nil && c.Synthesis != c.Query {
		errs = append(errs, c.Synthesis.Close())
	}
	return errors.Join(errs...)
}

// NewLLMClients builds the query and synthesis clients for cfg.Provider and
// wraps each with logging, retry, rate limiting, timeout and hooks.
func NewLLMClients(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (LLMClients, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Provider), "fake") {
		c := wrapClient(llm.NewFakeClient(), cfg, log)
		return LLMClients{Query: c, Synthesis: c}, nil
	}

	query, err := llmclient.New(ctx, providerFor(cfg, cfg.QueryModel))
	if err != nil {
		return LLMClients{}, fmt.Errorf("llm query client failed: %w", err)
	}
	synthesis, err := llmclient.New(ctx, providerFor(cfg, cfg.SynthesisModel))
	if err != nil {
		_ = query.Close()
		return LLMClients{}, fmt.Errorf("llm synthesis client failed: %w", err)
	}
	log.Info("llm clients ready", zap.String("query", query.Name()), zap.String("synthesis", synthesis.Name()))
	return LLMClients{
		Query:     wrapClient(query, cfg, log),
		Synthesis: wrapClient(synthesis, cfg, log),
	}, nil
}

func providerFor(cfg config.LLMConfig, model string) llmclient.Provider {
	p := llmclient.Provider{
		Name:       cfg.Provider,
		Model:      model,
		APIKey:     cfg.APIKey,
		Host:       cfg.OllamaHost,
		TokenLimit: cfg.TokenLimit,
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Provider), "ollama") {
		p.Model = firstNonEmpty(cfg.OllamaModel, model)
	}
	return p
}

func wrapClient(c llmclient.Client, cfg config.LLMConfig, log *zap.Logger) llmclient.Client {
	return llm.Wrap(c,
		llm.WithLogging(log),
		llm.Retry(cfg.Retries, retryBaseDelay),
		llm.RateLimit(cfg.RPS, cfg.Burst),
		llm.Timeout(cfg.CallTimeout),
		llm.WithHooks(nil),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
