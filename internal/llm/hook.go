package llm

import (
	"context"

	"codesight/internal/llmclient"
)

// PromptHook observes every prompt and its outcome, e.g. to save prompts for
// offline inspection or to count calls in tests.
type PromptHook interface {
	Before(ctx context.Context, phase, prompt string)
	After(ctx context.Context, phase, output string, err error)
}

type ctxKeyHook struct{}
type ctxKeyPhase struct{}

// WithPhase tags ctx with the pipeline phase issuing the call
// (e.g. "imports.file", "qna.plan").
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyPhase{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// ContextWithHook attaches a hook that WithHooks will call.
func ContextWithHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if h, ok := ctx.Value(ctxKeyHook{}).(PromptHook); ok {
		return h
	}
	return nil
}

// WithHooks calls the context hook (if any) around Generate. A non-nil
// fixed hook is used when the context carries none.
func WithHooks(fixed PromptHook) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		return &hooked{passthrough: passthrough{next}, fixed: fixed}
	}
}

type hooked struct {
	passthrough
	fixed PromptHook
}

func (h *hooked) Generate(ctx context.Context, prompt string) (string, error) {
	hook := HookFrom(ctx)
	if hook == nil {
		hook = h.fixed
	}
	phase := PhaseFrom(ctx)
	if hook != nil {
		hook.Before(ctx, phase, prompt)
	}
	out, err := h.next.Generate(ctx, prompt)
	if hook != nil {
		hook.After(ctx, phase, out, err)
	}
	return out, err
}
