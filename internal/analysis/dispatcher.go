// Package analysis runs the report pipeline: per-file fan-out, aggregation,
// duplication over the whole codebase, and the executive summary.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"codesight/internal/fanout"
	"codesight/internal/llm"
	"codesight/internal/llmclient"
	"codesight/internal/normalize"
	"codesight/internal/prompts"
	"codesight/internal/querycontext"
)

// DefaultWorkers bounds concurrent per-file analysis queries.
const DefaultWorkers = 5

// Phase tags carried on LLM calls.
const (
	PhaseImportsFile      = "imports.file"
	PhaseImportsAggregate = "imports.aggregate"
	PhaseIssuesFile       = "issues.file"
	PhaseIssuesAggregate  = "issues.aggregate"
	PhaseDuplication      = "duplication"
	PhaseSummary          = "summary"
)

type perFileKind struct {
	section    SectionName
	label      string // "imports" / "issues" in per-file error markers
	prompt     string
	filePhase  string
	aggPhase   string
	summaryFor func(map[string]json.RawMessage) (string, error)
}

var (
	importsKind = perFileKind{
		section:    SectionImports,
		label:      "imports",
		prompt:     prompts.ImportAnalysis,
		filePhase:  PhaseImportsFile,
		aggPhase:   PhaseImportsAggregate,
		summaryFor: prompts.ImportSummary,
	}
	issuesKind = perFileKind{
		section:    SectionIssues,
		label:      "issues",
		prompt:     prompts.CodeIssues,
		filePhase:  PhaseIssuesFile,
		aggPhase:   PhaseIssuesAggregate,
		summaryFor: prompts.CodeIssuesSummary,
	}
)

// Dispatcher runs the imports, issues and duplication analyses.
type Dispatcher struct {
	synth   llmclient.Client
	workers int
	log     *zap.Logger
}

// NewDispatcher uses synth for aggregation calls.
func NewDispatcher(synth llmclient.Client, workers int, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{synth: synth, workers: workers, log: log}
}

// Imports maps the import prompt over every file and aggregates the results.
func (d *Dispatcher) Imports(ctx context.Context, reg *querycontext.Registry) Section {
	d.log.Info("analyzing imports")
	return d.perFile(ctx, reg, importsKind)
}

// Issues maps the code issues prompt over every file and aggregates the results.
func (d *Dispatcher) Issues(ctx context.Context, reg *querycontext.Registry) Section {
	d.log.Info("analyzing code issues")
	return d.perFile(ctx, reg, issuesKind)
}

// collect runs the per-file query for kind and returns path -> JSON result.
// Failed queries become {"error": "..."} markers; unparseable replies become
// the malformed envelope.
func (d *Dispatcher) collect(ctx context.Context, reg *querycontext.Registry, k perFileKind) map[string]json.RawMessage {
	paths := reg.Paths()
	fctx := llm.WithPhase(ctx, k.filePhase)
	return fanout.Map(fctx, d.workers, paths, func(ctx context.Context, p string) json.RawMessage {
		qc, _ := reg.Lookup(p)
		raw, err := qc.Query(ctx, k.prompt)
		if err != nil {
			d.log.Error("per-file analysis failed",
				zap.String("kind", k.label), zap.String("path", p), zap.Error(err))
			return errorMarker(fmt.Sprintf("Error analyzing %s: %v", k.label, err))
		}
		out := normalize.ParseJSON(raw)
		if m, ok := out.(normalize.Malformed); ok {
			d.log.Warn("unparseable per-file result",
				zap.String("kind", k.label), zap.String("path", p), zap.Int("bytes", len(m.Raw)))
		}
		return normalize.JSONValue(out)
	})
}

func (d *Dispatcher) perFile(ctx context.Context, reg *querycontext.Registry, k perFileKind) Section {
	results := d.collect(ctx, reg, k)

	prompt, err := k.summaryFor(results)
	if err != nil {
		d.log.Error("aggregation prompt failed", zap.String("section", string(k.section)), zap.Error(err))
		return failed(k.section, KindAggregate, err)
	}
	text, err := d.synth.Generate(llm.WithPhase(ctx, k.aggPhase), prompt)
	if err != nil {
		d.log.Error("aggregation failed", zap.String("section", string(k.section)), zap.Error(err))
		return failed(k.section, KindAggregate, err)
	}
	return Section{Text: normalize.CleanMarkdown(text)}
}

// Duplication queries the whole-codebase context once.
func (d *Dispatcher) Duplication(ctx context.Context, reg *querycontext.Registry) Section {
	d.log.Info("analyzing code duplication")
	if reg == nil || reg.Codebase == nil {
		d.log.Error("codebase query context not available for duplication analysis")
		return failed(SectionDuplication, KindUnavailable, ErrContextUnavailable)
	}
	raw, err := reg.Codebase.Query(llm.WithPhase(ctx, PhaseDuplication), prompts.Duplication)
	if err != nil {
		d.log.Error("duplication analysis failed", zap.Error(err))
		return failed(SectionDuplication, KindQuery, err)
	}
	d.log.Info("duplication analysis completed")
	return Section{Text: normalize.CleanMarkdown(raw)}
}

func errorMarker(msg string) json.RawMessage {
	b, err := normalize.MarshalNoEscape(map[string]string{"error": msg})
	if err != nil {
		return json.RawMessage(`{"error":"analysis failed"}`)
	}
	return b
}
