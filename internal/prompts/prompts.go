// Package prompts holds the prompt catalog used by analysis and Q&A.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"codesight/internal/normalize"
)

// ImportAnalysis is sent to each per-file context.
const ImportAnalysis = `
Task
- Extract every import/include statement in this file for dependency tracking.
- Classify each as standard library, third party, or local/relative.
- Note conditional or dynamic imports and flag deprecated or risky modules.

Rules
- Only real import statements, never comments that mention imports.
- Include line numbers where possible.

Output (single JSON object, no comments)
{
  "imports": [
    {"statement": "import pandas as pd", "type": "third_party", "module": "pandas", "alias": "pd", "line_number": 5}
  ],
  "file_path": "relative/path/to/file",
  "import_count": 1,
  "potential_issues": ["circular import risk"]
}
`

// CodeIssues is sent to each per-file context.
const CodeIssues = `
Task
- Identify security vulnerabilities, performance problems, code quality issues and logic errors in this file.

Rules
- Report realistic, exploitable security issues only.
- Keep to the most critical findings.

Output (single JSON object, no comments)
{
  "security_issues":    [{"severity": "high", "type": "sql_injection", "line": 45, "description": "..."}],
  "performance_issues": [{"severity": "medium", "type": "inefficient_loop", "line": 78, "description": "..."}],
  "quality_issues":     [{"severity": "low", "type": "naming", "line": 12, "description": "..."}],
  "logic_errors":       [{"severity": "high", "type": "null_pointer", "line": 34, "description": "..."}],
  "overall_score": 7,
  "file_path": "relative/path/to/file"
}
`

// Duplication is sent once to the whole-codebase context.
const Duplication = `
Task
- Find duplicated code, similar logic and repeated constants across the whole codebase.
- Suggest concrete consolidation and refactoring opportunities.

Rules
- Ignore trivial similarities.
- Name the files involved for every finding.

Output (Markdown)
## Code Duplication Analysis
### Exact Duplicates
### Similar Patterns
### Repeated Constants/Configurations
### Refactoring Opportunities
### Architecture Improvements
`

var catalog = template.Must(template.New("prompts").Parse(`
{{define "importSummary"}}
Task
- Merge the per-file import analyses below into one dependency report.
- Cross-reference imports to find missing, unused and circular dependencies.
- Flag security-sensitive imports (subprocess, eval, exec and similar).
- Entries with an "error" field are files whose analysis failed; mention them briefly.

Per-file results (JSON)
{{.Results}}

Output (Markdown)
## Import Analysis Summary
### Critical Issues
### Dependency Mapping
### Security Concerns
### Recommendations
### Import Statistics
{{end}}

{{define "issuesSummary"}}
Task
- Merge the per-file code issue reports below into one prioritized quality report.
- Group by severity and type, call out recurring patterns, and give file locations.
- Entries with an "error" field are files whose analysis failed; mention them briefly.

Per-file results (JSON)
{{.Results}}

Output (Markdown)
## Code Quality Analysis
### Critical Security Issues (Immediate Action Required)
### Performance Bottlenecks
### Code Quality Concerns
### Technical Debt Summary
### Codebase Health Score: X/10
{{end}}

{{define "executiveSummary"}}
Create an executive summary from these analyses.

IMPORTS: {{.Imports}}

CODE ISSUES: {{.Issues}}

DUPLICATION: {{.Duplication}}

Provide:
1. Overall assessment
2. Top 5 priority actions
3. Risk level (Low/Medium/High), written as "Risk Level: <level>"
4. Recommendations
{{end}}

{{define "questionPlan"}}
Decide how to answer this question about a codebase.

QUESTION: {{.Question}}

CODEBASE STRUCTURE:
{{.Structure}}

Determine:
1. Should the whole-codebase context be used (architecture, patterns, cross-file questions)?
2. Or should specific files be targeted (implementation details, functions, classes)?
3. What enhanced prompt would get the best answer?

Output (single JSON object)
{
  "use_codebase_engine": true,
  "target_files": ["path/to/file.py"],
  "enhanced_prompt": "The question rewritten with added context",
  "reasoning": "Why this approach was chosen"
}
{{end}}

{{define "answerSynthesis"}}
Original Question: {{.Question}}
Context from multiple files:
{{.Contexts}}

Synthesize one comprehensive answer from the above information. Be specific and reference files when relevant.
{{end}}
`))

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := catalog.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

func indentJSON(v any) (string, error) {
	b, err := normalize.MarshalIndentNoEscape(v, "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ImportSummary renders the aggregation prompt over path -> per-file result.
func ImportSummary(results map[string]json.RawMessage) (string, error) {
	js, err := indentJSON(results)
	if err != nil {
		return "", err
	}
	return render("importSummary", struct{ Results string }{js})
}

// CodeIssuesSummary renders the aggregation prompt over path -> per-file result.
func CodeIssuesSummary(results map[string]json.RawMessage) (string, error) {
	js, err := indentJSON(results)
	if err != nil {
		return "", err
	}
	return render("issuesSummary", struct{ Results string }{js})
}

// ExecutiveSummary renders the final summary prompt over the three section texts.
func ExecutiveSummary(imports, issues, duplication string) (string, error) {
	return render("executiveSummary", struct{ Imports, Issues, Duplication string }{imports, issues, duplication})
}

// QuestionPlan renders the routing prompt.
func QuestionPlan(question, structure string) (string, error) {
	return render("questionPlan", struct{ Question, Structure string }{question, structure})
}

// AnswerSynthesis renders the multi-file answer prompt. contexts is the
// concatenation of "From <path>:\n<response>\n" blocks.
func AnswerSynthesis(question, contexts string) (string, error) {
	return render("answerSynthesis", struct{ Question, Contexts string }{question, contexts})
}
