package analysis

import (
	"errors"
	"fmt"
)

// ErrorKind tags where a section failed.
type ErrorKind string

const (
	KindRead        ErrorKind = "read"
	KindContext     ErrorKind = "context"
	KindQuery       ErrorKind = "query"
	KindAggregate   ErrorKind = "aggregate"
	KindUnavailable ErrorKind = "unavailable"
	KindSynthesis   ErrorKind = "synthesis"
	KindPlan        ErrorKind = "plan"
)

// SectionName identifies a report section by its field name.
type SectionName string

const (
	SectionImports     SectionName = "imports_analysis"
	SectionIssues      SectionName = "code_issues"
	SectionDuplication SectionName = "duplication_analysis"
	SectionSummary     SectionName = "summary"
)

// ErrContextUnavailable is wrapped when the whole-codebase context was never built.
var ErrContextUnavailable = errors.New("codebase query context not available")

// SectionError is the typed failure of one report section.
type SectionError struct {
	Kind    ErrorKind
	Section SectionName
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Section, e.Kind, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// Display is the user-facing text substituted for the failed section.
func (e *SectionError) Display() string {
	switch e.Section {
	case SectionImports:
		return "Error in import analysis"
	case SectionIssues:
		return "Error in code issues analysis"
	case SectionDuplication:
		if e.Kind == KindUnavailable {
			return "Error: Codebase query engine not available"
		}
		return fmt.Sprintf("Error in duplication analysis: %v", e.Err)
	case SectionSummary:
		return "Error generating summary"
	default:
		return fmt.Sprintf("Error: %v", e.Err)
	}
}
