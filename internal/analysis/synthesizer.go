package analysis

import (
	"context"

	"go.uber.org/zap"

	"codesight/internal/llm"
	"codesight/internal/llmclient"
	"codesight/internal/normalize"
	"codesight/internal/prompts"
)

// Synthesizer writes the executive summary from the other three sections.
type Synthesizer struct {
	client llmclient.Client
	log    *zap.Logger
}

func NewSynthesizer(client llmclient.Client, log *zap.Logger) *Synthesizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{client: client, log: log}
}

// Summarize compiles the section texts, error strings included, into the
// summary section.
func (s *Synthesizer) Summarize(ctx context.Context, r Report) Section {
	s.log.Info("generating final report")
	prompt, err := prompts.ExecutiveSummary(r.Imports.Display(), r.Issues.Display(), r.Duplication.Display())
	if err != nil {
		return failed(SectionSummary, KindSynthesis, err)
	}
	text, err := s.client.Generate(llm.WithPhase(ctx, PhaseSummary), prompt)
	if err != nil {
		s.log.Error("error generating summary", zap.Error(err))
		return failed(SectionSummary, KindSynthesis, err)
	}
	return Section{Text: normalize.CleanMarkdown(text)}
}
