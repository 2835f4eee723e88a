package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codesight/internal/llmclient"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, timeouts, logging, hooks).
type Middleware func(llmclient.Client) llmclient.Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.Client, mws ...Middleware) llmclient.Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// passthrough forwards the non-generating methods so decorators only
// implement Generate.
type passthrough struct{ next llmclient.Client }

func (p passthrough) Name() string                { return p.next.Name() }
func (p passthrough) Close() error                { return p.next.Close() }
func (p passthrough) CountTokens(text string) int { return p.next.CountTokens(text) }
func (p passthrough) TokenCapacity() int          { return p.next.TokenCapacity() }

// -------- Rate limiting --------

// RateLimit limits request rate with a token bucket.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		return &rateLimited{passthrough: passthrough{next}, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	passthrough
	rl *rpsLimiter
}

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Generate(ctx, prompt)
}

// -------- Timeout --------

// Timeout bounds every Generate call. A hung provider call then stalls only
// its own worker slot for at most d.
func Timeout(d time.Duration) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		if d <= 0 {
			return next
		}
		return &timeboxed{passthrough: passthrough{next}, d: d}
	}
}

type timeboxed struct {
	passthrough
	d time.Duration
}

func (c *timeboxed) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	out, err := c.next.Generate(ctx, prompt)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("llm call exceeded %s: %w", c.d, err)
	}
	return out, err
}

// -------- Logging --------

// WithLogging logs request size, latency and errors per phase.
// A nil logger disables logging.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next llmclient.Client) llmclient.Client {
		return &logging{passthrough: passthrough{next}, log: logger}
	}
}

type logging struct {
	passthrough
	log *zap.Logger
}

func (l *logging) Generate(ctx context.Context, prompt string) (string, error) {
	phase := PhaseFrom(ctx)
	start := time.Now()
	l.log.Debug("llm request",
		zap.String("client", l.next.Name()),
		zap.String("phase", phase),
		zap.Int("bytes", len(prompt)))
	out, err := l.next.Generate(ctx, prompt)
	if err != nil {
		l.log.Warn("llm error",
			zap.String("client", l.next.Name()),
			zap.String("phase", phase),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return out, err
	}
	l.log.Debug("llm response",
		zap.String("phase", phase),
		zap.Int("bytes", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}
