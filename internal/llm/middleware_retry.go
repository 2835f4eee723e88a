package llm

import (
	"context"
	"time"

	"codesight/internal/llmclient"
)

// Retry retries Generate up to maxAttempts with exponential backoff
// starting at baseDelay. Permanent errors and context cancellation stop
// immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.Client) llmclient.Client {
		return &retrying{passthrough: passthrough{next}, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	passthrough
	max  int
	base time.Duration
}

func (r *retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if llmclient.IsPermanent(err) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", last
}
