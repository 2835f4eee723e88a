// Package qna answers free-form questions by routing them to the
// whole-codebase context or to a targeted set of file contexts.
package qna

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"codesight/internal/codebase"
	"codesight/internal/fanout"
	"codesight/internal/llm"
	"codesight/internal/llmclient"
	"codesight/internal/prompts"
	"codesight/internal/querycontext"
)

// DefaultWorkers bounds concurrent targeted queries.
const DefaultWorkers = 5

const fallbackFileListLimit = 20

// Phase tags carried on LLM calls.
const (
	PhasePlan       = "qna.plan"
	PhaseWhole      = "qna.whole"
	PhaseFile       = "qna.file"
	PhaseSynthesize = "qna.synthesize"
)

// Branch is the route a question took.
type Branch string

const (
	BranchNone     Branch = ""
	BranchWhole    Branch = "whole"
	BranchTargeted Branch = "targeted"
)

// FailureKind tags a user-visible non-answer.
type FailureKind string

const (
	FailNone        FailureKind = ""
	FailNoContexts  FailureKind = "no_contexts"
	FailUnavailable FailureKind = "unavailable"
	FailQuery       FailureKind = "query"
	FailNoFiles     FailureKind = "no_files"
	FailNoResponses FailureKind = "no_responses"
	FailSynthesis   FailureKind = "synthesis"
)

// FileResult is one targeted query outcome.
type FileResult struct {
	Path     string
	Response string
	Err      error
}

// Answer is the typed outcome of Route.
type Answer struct {
	Plan       Plan
	PlanFailed bool
	Branch     Branch
	Text       string // model text; empty on failure
	Files      []string
	Results    []FileResult
	Failure    FailureKind
	Err        error
}

// Display converts the outcome to the text shown to the user.
func (a Answer) Display() string {
	switch a.Failure {
	case FailNoContexts:
		return "No query contexts available. Please analyze codebase first."
	case FailUnavailable:
		return "Codebase context not available. Please analyze the codebase first."
	case FailQuery:
		return fmt.Sprintf("Error processing question: %v", a.Err)
	case FailNoFiles:
		return "No relevant files found to answer your question."
	case FailNoResponses:
		return "Unable to get responses from any relevant files."
	case FailSynthesis:
		var ok []string
		for _, r := range a.Results {
			if r.Err == nil {
				ok = append(ok, r.Response)
			}
		}
		return fmt.Sprintf("Based on analysis of %d files:\n\n", len(ok)) + strings.Join(ok, "\n\n")
	default:
		return a.Text
	}
}

// Router plans, routes and combines answers over one registry.
type Router struct {
	client      llmclient.Client
	reg         *querycontext.Registry
	snapshotDir string
	workers     int
	log         *zap.Logger
}

// NewRouter uses client for planning and synthesis. snapshotDir holds the
// structure snapshot; it may be empty.
func NewRouter(client llmclient.Client, reg *querycontext.Registry, snapshotDir string, workers int, log *zap.Logger) *Router {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{client: client, reg: reg, snapshotDir: snapshotDir, workers: workers, log: log}
}

// Answer returns the display text for question.
func (r *Router) Answer(ctx context.Context, question string) string {
	return r.Route(ctx, question).Display()
}

// Route runs the plan, route and combine steps and returns the typed outcome.
func (r *Router) Route(ctx context.Context, question string) Answer {
	r.log.Info("processing question", zap.String("question", question))
	if r.reg == nil || (len(r.reg.Files) == 0 && r.reg.Codebase == nil) {
		return Answer{Failure: FailNoContexts}
	}

	plan, planned := r.plan(ctx, question)
	ans := Answer{Plan: plan, PlanFailed: !planned}
	if plan.UseWholeCodebase {
		return r.whole(ctx, ans)
	}
	return r.targeted(ctx, question, ans)
}

func (r *Router) plan(ctx context.Context, question string) (Plan, bool) {
	prompt, err := prompts.QuestionPlan(question, r.structureSummary())
	if err != nil {
		r.log.Error("error building plan prompt", zap.Error(err))
		return DefaultPlan(question), false
	}
	raw, err := r.client.Generate(llm.WithPhase(ctx, PhasePlan), prompt)
	if err != nil {
		r.log.Error("error analyzing question", zap.Error(err))
		return DefaultPlan(question), false
	}
	plan, ok := ParsePlan(raw, question)
	if !ok {
		r.log.Warn("unparseable question plan, using whole codebase")
		return plan, false
	}
	r.log.Info("question plan", zap.Bool("whole", plan.UseWholeCodebase),
		zap.Strings("targets", plan.TargetFiles), zap.String("reasoning", plan.Reasoning))
	return plan, true
}

func (r *Router) structureSummary() string {
	if r.snapshotDir != "" {
		if s, err := codebase.SummarizeSnapshot(r.snapshotDir, codebase.DefaultSummaryLimit); err == nil {
			return s
		}
	}
	paths := r.reg.Paths()
	if len(paths) > fallbackFileListLimit {
		paths = paths[:fallbackFileListLimit]
	}
	return "Available files: " + strings.Join(paths, ", ")
}

func (r *Router) whole(ctx context.Context, ans Answer) Answer {
	ans.Branch = BranchWhole
	if r.reg.Codebase == nil {
		ans.Failure = FailUnavailable
		return ans
	}
	r.log.Info("using whole-codebase context")
	text, err := r.reg.Codebase.Query(llm.WithPhase(ctx, PhaseWhole), ans.Plan.EnhancedPrompt)
	if err != nil {
		r.log.Error("error querying whole-codebase context", zap.Error(err))
		ans.Failure, ans.Err = FailQuery, err
		return ans
	}
	ans.Text = text
	return ans
}

func (r *Router) targeted(ctx context.Context, question string, ans Answer) Answer {
	ans.Branch = BranchTargeted
	targets := ans.Plan.TargetFiles
	if len(targets) == 0 {
		targets = r.reg.Paths()
	}
	seen := map[string]bool{}
	for _, target := range targets {
		if p, ok := r.reg.Resolve(target); ok && !seen[p] {
			seen[p] = true
			ans.Files = append(ans.Files, p)
		}
	}
	r.log.Info("querying targeted files", zap.Int("requested", len(targets)), zap.Int("resolved", len(ans.Files)))
	if len(ans.Files) == 0 {
		ans.Failure = FailNoFiles
		return ans
	}

	fctx := llm.WithPhase(ctx, PhaseFile)
	results := fanout.Map(fctx, r.workers, ans.Files, func(ctx context.Context, p string) FileResult {
		qc, _ := r.reg.Lookup(p)
		text, err := qc.Query(ctx, ans.Plan.EnhancedPrompt)
		if err != nil {
			r.log.Error("error querying file", zap.String("path", p), zap.Error(err))
		}
		return FileResult{Path: p, Response: text, Err: err}
	})

	var combined strings.Builder
	ok := 0
	for _, p := range ans.Files {
		res := results[p]
		ans.Results = append(ans.Results, res)
		if res.Err != nil {
			continue
		}
		ok++
		fmt.Fprintf(&combined, "From %s:\n%s\n", res.Path, res.Response)
	}
	if ok == 0 {
		ans.Failure = FailNoResponses
		ans.Err = errors.Join(collectErrs(ans.Results)...)
		return ans
	}

	prompt, err := prompts.AnswerSynthesis(question, combined.String())
	if err == nil {
		ans.Text, err = r.client.Generate(llm.WithPhase(ctx, PhaseSynthesize), prompt)
	}
	if err != nil {
		r.log.Error("error synthesizing results", zap.Error(err))
		ans.Text = ""
		ans.Failure, ans.Err = FailSynthesis, err
	}
	return ans
}

func collectErrs(rs []FileResult) []error {
	var out []error
	for _, r := range rs {
		if r.Err != nil {
			out = append(out, r.Err)
		}
	}
	return out
}
