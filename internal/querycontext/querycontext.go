// Package querycontext binds text corpora (one file, or the whole codebase)
// to an LLM so prompts are answered from that corpus only.
package querycontext

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"codesight/internal/llmclient"
	"codesight/internal/wordidx"
)

// ErrDegenerateCorpus is returned for corpora with no usable text.
var ErrDegenerateCorpus = errors.New("querycontext: empty or whitespace-only corpus")

// QueryContext answers prompts conditioned on a fixed corpus.
type QueryContext interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Constructor builds a QueryContext over a corpus.
type Constructor interface {
	Construct(ctx context.Context, corpus string) (QueryContext, error)
}

// ConstructorFunc adapts a function to Constructor.
type ConstructorFunc func(ctx context.Context, corpus string) (QueryContext, error)

func (f ConstructorFunc) Construct(ctx context.Context, corpus string) (QueryContext, error) {
	return f(ctx, corpus)
}

const (
	defaultChunkTokens = 1500
	// answer headroom kept free of corpus text
	defaultReserveTokens = 2048
)

// minTermLen drops short words from retrieval queries.
const minTermLen = 3

var fileHeader = regexp.MustCompile(`(?m)^=== FILE: (.+) ===$`)

// Engine is the Constructor backed by an llmclient.Client.
type Engine struct {
	client      llmclient.Client
	chunkTokens int
	reserve     int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithChunkTokens sets the section size used when a corpus has no file headers.
func WithChunkTokens(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.chunkTokens = n
		}
	}
}

// WithReserveTokens sets the token headroom left for the answer.
func WithReserveTokens(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.reserve = n
		}
	}
}

func NewEngine(client llmclient.Client, opts ...EngineOption) *Engine {
	e := &Engine{client: client, chunkTokens: defaultChunkTokens, reserve: defaultReserveTokens}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Construct splits corpus into sections. It fails only for blank corpora.
func (e *Engine) Construct(ctx context.Context, corpus string) (QueryContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(corpus) == "" {
		return nil, ErrDegenerateCorpus
	}
	secs := splitSections(corpus, e.chunkTokens, e.client.CountTokens)
	total := 0
	for i := range secs {
		total += secs[i].tokens
	}
	return &corpusContext{engine: e, corpus: corpus, sections: secs, tokens: total}, nil
}

type section struct {
	text   string
	tokens int
	words  *wordidx.Index
}

type corpusContext struct {
	engine   *Engine
	corpus   string
	sections []section
	tokens   int
}

func (c *corpusContext) Query(ctx context.Context, prompt string) (string, error) {
	body := c.pick(prompt)
	out, err := c.engine.client.Generate(ctx, buildPrompt(body, prompt))
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	return out, nil
}

// pick returns the corpus when it fits the client's budget, otherwise the
// highest-overlap sections that fit, kept in corpus order.
func (c *corpusContext) pick(prompt string) string {
	cli := c.engine.client
	budget := cli.TokenCapacity() - c.engine.reserve - cli.CountTokens(prompt)
	if c.tokens <= budget || len(c.sections) <= 1 {
		return c.corpus
	}

	q := wordidx.Terms(prompt, minTermLen)
	type ranked struct{ idx, score int }
	order := make([]ranked, len(c.sections))
	for i, s := range c.sections {
		order[i] = ranked{idx: i, score: s.words.Overlap(q)}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].score > order[j].score })

	picked := make([]bool, len(c.sections))
	used := 0
	for _, r := range order {
		t := c.sections[r.idx].tokens
		if used+t > budget {
			continue
		}
		picked[r.idx] = true
		used += t
	}

	var b strings.Builder
	for i, ok := range picked {
		if ok {
			b.WriteString(c.sections[i].text)
		}
	}
	if b.Len() == 0 {
		// nothing fits; truncate the best section
		best := c.sections[order[0].idx].text
		return truncateUTF8(best, budget*4)
	}
	return b.String()
}

// truncateUTF8 cuts s to at most limit bytes on a rune boundary. At least one
// rune is kept.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	if limit <= 0 {
		_, limit = utf8.DecodeRuneInString(s)
	}
	return s[:limit]
}

func buildPrompt(corpus, instruction string) string {
	var b strings.Builder
	b.WriteString("Answer using only the source material below.\n\n")
	b.WriteString("<source>\n")
	b.WriteString(corpus)
	b.WriteString("\n</source>\n\n")
	b.WriteString(instruction)
	return b.String()
}

// splitSections cuts on file headers; a corpus without headers is cut into
// line-aligned chunks of about chunkTokens.
func splitSections(corpus string, chunkTokens int, count func(string) int) []section {
	var parts []string
	locs := fileHeader.FindAllStringIndex(corpus, -1)
	if len(locs) > 0 {
		if pre := corpus[:locs[0][0]]; strings.TrimSpace(pre) != "" {
			parts = append(parts, pre)
		}
		for i, loc := range locs {
			end := len(corpus)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			parts = append(parts, corpus[loc[0]:end])
		}
	} else {
		parts = chunkLines(corpus, chunkTokens, count)
	}

	out := make([]section, 0, len(parts))
	for _, p := range parts {
		out = append(out, section{text: p, tokens: count(p), words: wordidx.BuildString(p)})
	}
	return out
}

func chunkLines(text string, chunkTokens int, count func(string) int) []string {
	lines := strings.SplitAfter(text, "\n")
	var out []string
	var cur strings.Builder
	n := 0
	for _, ln := range lines {
		t := count(ln)
		if n > 0 && n+t > chunkTokens {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
		cur.WriteString(ln)
		n += t
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
