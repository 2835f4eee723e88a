package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_FieldsAndJSON(t *testing.T) {
	r := Report{
		Imports:     Section{Text: "imp"},
		Issues:      Section{Text: "iss"},
		Duplication: failed(SectionDuplication, KindUnavailable, ErrContextUnavailable),
		Summary:     Section{Text: "sum"},
	}
	f := r.Fields()
	assert.Equal(t, "imp", f["imports_analysis"])
	assert.Equal(t, "iss", f["code_issues"])
	assert.Equal(t, "Error: Codebase query engine not available", f["duplication_analysis"])
	assert.Equal(t, "sum", f["summary"])

	b, err := json.Marshal(r)
	require.NoError(t, err)
	var back map[string]string
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, f, back)
}

func TestReport_Markdown(t *testing.T) {
	r := Report{
		Imports:     Section{Text: "imp"},
		Issues:      Section{Text: "iss"},
		Duplication: Section{Text: "dup"},
		Summary:     failed(SectionSummary, KindSynthesis, errBoom),
	}
	md := r.Markdown()
	for _, h := range []string{"## Executive Summary", "## Import Analysis", "## Code Issues", "## Duplication Analysis"} {
		assert.Contains(t, md, h)
	}
	assert.Equal(t, 4, strings.Count(md, "\n## "))
	assert.Contains(t, md, "Error generating summary")
}

func TestReport_MarkdownNestsSectionHeadings(t *testing.T) {
	r := Report{
		Imports:     Section{Text: "## Imports\n\n### Stdlib\n- os"},
		Issues:      Section{Text: "# Findings\n```python\n# not a heading\n```"},
		Duplication: Section{Text: "#### Pairs\n###### deep"},
		Summary:     Section{Text: "## Overview\nRisk Level: Low"},
	}
	md := r.Markdown()
	assert.Equal(t, 4, strings.Count(md, "\n## "))
	assert.Contains(t, md, "\n### Imports\n")
	assert.Contains(t, md, "\n#### Stdlib\n")
	assert.Contains(t, md, "\n### Findings\n")
	assert.Contains(t, md, "\n# not a heading\n")
	assert.Contains(t, md, "\n#### Pairs\n")
	assert.Contains(t, md, "\n###### deep\n")
	assert.Contains(t, md, "\n### Overview\n")
}

func TestRiskLevel(t *testing.T) {
	cases := map[string]string{
		"Risk Level: High":           "High",
		"**Risk level** - low":       "Low",
		"3. RISK LEVEL (MEDIUM)":     "Medium",
		"risklevel:medium, probably": "Medium",
	}
	for in, want := range cases {
		got, ok := RiskLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := RiskLevel("no rating given")
	assert.False(t, ok)
}
