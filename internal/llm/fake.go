package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
)

// FakeClient is a deterministic, offline Client. It answers with canned text
// chosen by the phase carried in the context, so the full pipeline can run
// without network access.
type FakeClient struct {
	// Responses overrides the canned text per phase.
	Responses map[string]string
	// Fail makes Generate fail for the listed phases.
	Fail map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{Responses: map[string]string{}, Fail: map[string]error{}}
}

func (f *FakeClient) Name() string                { return "FakeClient" }
func (f *FakeClient) Close() error                { return nil }
func (f *FakeClient) CountTokens(text string) int { return len(strings.Fields(text)) }
func (f *FakeClient) TokenCapacity() int          { return 1 << 20 }

// Calls reports how many times Generate ran for a phase.
func (f *FakeClient) Calls(phase string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[phase]
}

func (f *FakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	phase := PhaseFrom(ctx)
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[phase]++
	f.mu.Unlock()

	if err, ok := f.Fail[phase]; ok {
		return "", err
	}
	if s, ok := f.Responses[phase]; ok {
		return s, nil
	}
	return cannedResponse(phase, prompt), nil
}

func cannedResponse(phase, prompt string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	tag := fmt.Sprintf("%08x", h.Sum32())

	switch phase {
	case "imports.file":
		return "```json\n{\"imports\":[],\"unused\":[],\"note\":\"offline " + tag + "\"}\n```"
	case "issues.file":
		return "```json\n{\"issues\":[],\"note\":\"offline " + tag + "\"}\n```"
	case "imports.aggregate":
		return "```markdown\n## Import Analysis\n\nNo problematic imports detected (offline mode).\n```"
	case "issues.aggregate":
		return "```markdown\n## Code Issues\n\nNo issues detected (offline mode).\n```"
	case "duplication":
		return "## Duplication\n\nNo duplicated logic detected (offline mode)."
	case "summary":
		return "## Executive Summary\n\nOverall assessment: offline run.\n\n**Risk Level:** Low"
	case "qna.plan":
		return `{"use_codebase_engine": true, "target_files": [], "enhanced_prompt": "", "reasoning": "offline"}`
	case "qna.synthesize":
		return "Combined answer (offline mode)."
	default:
		return "Offline response " + tag
	}
}
