package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codesight/internal/codebase"
	"codesight/internal/querycontext"
)

// Stage names a pipeline step in progress events.
type Stage string

const (
	StageStructure   Stage = "structure"
	StageContexts    Stage = "contexts"
	StageImports     Stage = "imports"
	StageIssues      Stage = "issues"
	StageDuplication Stage = "duplication"
	StageSummary     Stage = "summary"
	StageDone        Stage = "done"
)

// Event reports a finished stage. Failed is set when the stage degraded.
type Event struct {
	Stage   Stage     `json:"stage"`
	Message string    `json:"message"`
	Failed  bool      `json:"failed,omitempty"`
	At      time.Time `json:"at"`
}

// Observer receives pipeline events in order. Nil observers are allowed.
type Observer func(Event)

// Result is everything one analysis run produced.
type Result struct {
	Tree         *codebase.Tree
	Registry     *querycontext.Registry
	Report       Report
	SnapshotPath string // empty when the snapshot could not be written
}

// Pipeline wires structurer, context builder, dispatcher and synthesizer.
type Pipeline struct {
	Structurer  *codebase.Structurer
	Builder     *querycontext.Builder
	Dispatcher  *Dispatcher
	Synthesizer *Synthesizer
	Log         *zap.Logger
}

// Run analyzes root, writing the structure snapshot to workDir (root when
// empty). It fails only when root cannot be walked; every later failure is
// captured in the report sections.
func (p *Pipeline) Run(ctx context.Context, root, workDir string, obs Observer) (*Result, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	emit := func(st Stage, msg string, failed bool) {
		if obs != nil {
			obs(Event{Stage: st, Message: msg, Failed: failed, At: time.Now()})
		}
	}
	if workDir == "" {
		workDir = root
	}
	log.Info("starting analysis pipeline", zap.String("root", root))

	tree, err := p.Structurer.Build(root)
	if err != nil {
		emit(StageStructure, err.Error(), true)
		return nil, err
	}
	res := &Result{Tree: tree}
	if path, err := codebase.SaveSnapshot(tree, workDir); err != nil {
		log.Error("failed to save structure", zap.Error(err))
	} else {
		res.SnapshotPath = path
		log.Info("codebase structure saved", zap.String("path", path))
	}
	emit(StageStructure, fmt.Sprintf("%d source files", tree.Count()), false)

	res.Registry = p.Builder.Build(ctx, tree)
	emit(StageContexts, fmt.Sprintf("%d file contexts", len(res.Registry.Files)), res.Registry.Codebase == nil)

	res.Report.Imports = p.Dispatcher.Imports(ctx, res.Registry)
	emit(StageImports, "import analysis finished", !res.Report.Imports.OK())
	res.Report.Issues = p.Dispatcher.Issues(ctx, res.Registry)
	emit(StageIssues, "code issues analysis finished", !res.Report.Issues.OK())
	res.Report.Duplication = p.Dispatcher.Duplication(ctx, res.Registry)
	emit(StageDuplication, "duplication analysis finished", !res.Report.Duplication.OK())
	res.Report.Summary = p.Synthesizer.Summarize(ctx, res.Report)
	emit(StageSummary, "summary finished", !res.Report.Summary.OK())

	emit(StageDone, "analysis complete", false)
	log.Info("analysis completed", zap.Int("files", tree.Count()))
	return res, nil
}
