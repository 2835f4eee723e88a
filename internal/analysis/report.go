package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Section is one report section: text on success, a typed error otherwise.
type Section struct {
	Text string
	Err  *SectionError
}

// OK reports whether the section succeeded.
func (s Section) OK() bool { return s.Err == nil }

// Display returns the text, or the fixed error string for a failed section.
func (s Section) Display() string {
	if s.Err != nil {
		return s.Err.Display()
	}
	return s.Text
}

func failed(section SectionName, kind ErrorKind, err error) Section {
	return Section{Err: &SectionError{Kind: kind, Section: section, Err: err}}
}

// Report is the four-section analysis result.
type Report struct {
	Imports     Section
	Issues      Section
	Duplication Section
	Summary     Section
}

// Fields returns the four named text fields shown to consumers.
func (r Report) Fields() map[string]string {
	return map[string]string{
		string(SectionImports):     r.Imports.Display(),
		string(SectionIssues):      r.Issues.Display(),
		string(SectionDuplication): r.Duplication.Display(),
		string(SectionSummary):     r.Summary.Display(),
	}
}

// MarshalJSON encodes the report as its display fields.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// Markdown renders the report as one document with a heading per section.
// Headings inside section text are shifted to nest under the section title.
func (r Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Codebase Analysis Report\n\n")
	for _, s := range []struct {
		title string
		sec   Section
	}{
		{"Executive Summary", r.Summary},
		{"Import Analysis", r.Imports},
		{"Code Issues", r.Issues},
		{"Duplication Analysis", r.Duplication},
	} {
		b.WriteString("## ")
		b.WriteString(s.title)
		b.WriteString("\n\n")
		b.WriteString(demoteHeadings(strings.TrimSpace(s.sec.Display())))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

var atxHeading = regexp.MustCompile(`^( {0,3})(#{1,6})(\s.*)?$`)

// sectionHeadingLevel is the shallowest level allowed inside section text.
const sectionHeadingLevel = 3

// demoteHeadings shifts ATX headings outside code fences so the shallowest
// one sits at sectionHeadingLevel. Levels are capped at six.
func demoteHeadings(text string) string {
	lines := strings.Split(text, "\n")
	var heads []int
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence && atxHeading.MatchString(line) {
			heads = append(heads, i)
		}
	}
	shallowest := 7
	for _, i := range heads {
		shallowest = min(shallowest, len(atxHeading.FindStringSubmatch(lines[i])[2]))
	}
	shift := sectionHeadingLevel - shallowest
	if shift <= 0 {
		return text
	}
	for _, i := range heads {
		m := atxHeading.FindStringSubmatch(lines[i])
		level := min(len(m[2])+shift, 6)
		lines[i] = m[1] + strings.Repeat("#", level) + m[3]
	}
	return strings.Join(lines, "\n")
}
