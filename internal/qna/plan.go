package qna

import (
	"encoding/json"
	"strings"

	"codesight/internal/normalize"
)

// Plan is the planner's routing decision for one question.
type Plan struct {
	UseWholeCodebase bool     `json:"use_whole_codebase"`
	TargetFiles      []string `json:"target_files"`
	EnhancedPrompt   string   `json:"enhanced_prompt"`
	Reasoning        string   `json:"reasoning"`
}

// UnmarshalJSON accepts both "use_codebase_engine" and "use_whole_codebase".
func (p *Plan) UnmarshalJSON(b []byte) error {
	var raw struct {
		UseCodebaseEngine *bool    `json:"use_codebase_engine"`
		UseWholeCodebase  *bool    `json:"use_whole_codebase"`
		TargetFiles       []string `json:"target_files"`
		EnhancedPrompt    string   `json:"enhanced_prompt"`
		Reasoning         string   `json:"reasoning"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Plan{TargetFiles: raw.TargetFiles, EnhancedPrompt: raw.EnhancedPrompt, Reasoning: raw.Reasoning}
	switch {
	case raw.UseWholeCodebase != nil:
		p.UseWholeCodebase = *raw.UseWholeCodebase
	case raw.UseCodebaseEngine != nil:
		p.UseWholeCodebase = *raw.UseCodebaseEngine
	}
	return nil
}

// DefaultPlan routes the question unchanged to the whole-codebase context.
func DefaultPlan(question string) Plan {
	return Plan{
		UseWholeCodebase: true,
		EnhancedPrompt:   question,
		Reasoning:        "Fallback to whole codebase due to planning error",
	}
}

// ParsePlan decodes a planner reply. ok is false when the reply held no
// usable plan.
func ParsePlan(raw, question string) (Plan, bool) {
	if strings.TrimSpace(raw) == "" {
		return DefaultPlan(question), false
	}
	parsed, isParsed := normalize.ParseJSON(raw).(normalize.Parsed)
	if !isParsed {
		return DefaultPlan(question), false
	}
	var p Plan
	if err := normalize.UnmarshalFlex(parsed.Value, &p); err != nil {
		return DefaultPlan(question), false
	}
	if strings.TrimSpace(p.EnhancedPrompt) == "" {
		p.EnhancedPrompt = question
	}
	return p, true
}
