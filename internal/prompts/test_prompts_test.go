package prompts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportSummary_EmbedsIndentedResults(t *testing.T) {
	p, err := ImportSummary(map[string]json.RawMessage{
		"a.py": json.RawMessage(`{"imports":["os"]}`),
		"b.py": json.RawMessage(`{"error":"Error analyzing imports: boom"}`),
	})
	require.NoError(t, err)
	assert.Contains(t, p, "\"a.py\": {\n")
	assert.Contains(t, p, "Error analyzing imports: boom")
	assert.Contains(t, p, "## Import Analysis Summary")
}

func TestCodeIssuesSummary_EmptyMapping(t *testing.T) {
	p, err := CodeIssuesSummary(map[string]json.RawMessage{})
	require.NoError(t, err)
	assert.Contains(t, p, "{}")
}

func TestExecutiveSummary_NoHTMLEscaping(t *testing.T) {
	p, err := ExecutiveSummary("uses <os>", "Error in code issues analysis", "dup & more")
	require.NoError(t, err)
	assert.Contains(t, p, "IMPORTS: uses <os>")
	assert.Contains(t, p, "CODE ISSUES: Error in code issues analysis")
	assert.Contains(t, p, "DUPLICATION: dup & more")
	assert.Contains(t, p, "Risk level (Low/Medium/High)")
}

func TestQuestionPlanAndSynthesis(t *testing.T) {
	p, err := QuestionPlan("Where is auth?", `{"auth.py": {}}`)
	require.NoError(t, err)
	assert.Contains(t, p, "QUESTION: Where is auth?")
	assert.Contains(t, p, "use_codebase_engine")

	s, err := AnswerSynthesis("Where is auth?", "From auth.py:\nlogin()\n")
	require.NoError(t, err)
	assert.Contains(t, s, "Original Question: Where is auth?")
	assert.Contains(t, s, "From auth.py:\nlogin()")
}
