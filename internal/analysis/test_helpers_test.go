package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"codesight/internal/llm"
)

// recorder is a scripted client that remembers prompts per phase.
type recorder struct {
	mu      sync.Mutex
	prompts map[string][]string
	replies map[string]string
	fail    map[string]error
}

func newRecorder() *recorder {
	return &recorder{prompts: map[string][]string{}, replies: map[string]string{}, fail: map[string]error{}}
}

func (r *recorder) Name() string                { return "recorder" }
func (r *recorder) Close() error                { return nil }
func (r *recorder) CountTokens(text string) int { return len(strings.Fields(text)) }
func (r *recorder) TokenCapacity() int          { return 1 << 20 }
func (r *recorder) Generate(ctx context.Context, prompt string) (string, error) {
	phase := llm.PhaseFrom(ctx)
	r.mu.Lock()
	r.prompts[phase] = append(r.prompts[phase], prompt)
	reply, ok := r.replies[phase]
	err := r.fail[phase]
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	if !ok {
		reply = "```markdown\n" + phase + " ok\n```"
	}
	return reply, nil
}

func (r *recorder) last(phase string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := r.prompts[phase]
	if len(ps) == 0 {
		return ""
	}
	return ps[len(ps)-1]
}

func (r *recorder) count(phase string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts[phase])
}

// stubContext answers per phase, optionally failing.
type stubContext struct {
	reply string
	err   error
}

func (s stubContext) Query(ctx context.Context, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.reply != "" {
		return s.reply, nil
	}
	return `{"phase":"` + llm.PhaseFrom(ctx) + `"}`, nil
}

var errBoom = errors.New("boom")

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}
