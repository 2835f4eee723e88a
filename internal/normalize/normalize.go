// Package normalize turns raw model text into either cleaned prose or a
// decoded JSON value.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// EmptyResponse is the text substituted for a blank model reply.
const EmptyResponse = "No response generated"

const rawPreviewLimit = 500

var (
	leadingMarkdownFence = regexp.MustCompile("^```markdown[ \\t]*(?:\\n|$)")
	trailingFence        = regexp.MustCompile("(?:^|\\n)```[ \\t]*$")
	jsonFence            = regexp.MustCompile("```json\\s*")
	trailingBareFence    = regexp.MustCompile("```\\s*$")
)

// CleanMarkdown trims surrounding whitespace and removes a ```markdown
// wrapper or a dangling trailing fence until neither remains. Code blocks with
// both fences are kept. Blank or fence-only input yields EmptyResponse, and
// CleanMarkdown(CleanMarkdown(s)) == CleanMarkdown(s).
func CleanMarkdown(raw string) string {
	out := strings.TrimSpace(raw)
	for {
		next := out
		if leadingMarkdownFence.MatchString(next) {
			next = strings.TrimSpace(leadingMarkdownFence.ReplaceAllString(next, ""))
			next = trailingFence.ReplaceAllString(next, "")
		} else if fenceLines(next)%2 == 1 {
			next = trailingFence.ReplaceAllString(next, "")
		}
		next = strings.TrimSpace(next)
		if next == out {
			break
		}
		out = next
	}
	if out == "" {
		return EmptyResponse
	}
	return out
}

func fenceLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			n++
		}
	}
	return n
}

// Outcome is the result of ParseJSON: either Parsed or Malformed.
type Outcome interface {
	isOutcome()
}

// Parsed holds the decoded JSON object, re-encoded compactly.
type Parsed struct {
	Value json.RawMessage
}

// Malformed holds the original text when no JSON object could be decoded.
type Malformed struct {
	Raw string
}

func (Parsed) isOutcome()    {}
func (Malformed) isOutcome() {}

// Envelope is the error object recorded in place of an unparseable reply.
func (m Malformed) Envelope() json.RawMessage {
	b, err := MarshalNoEscape(map[string]string{
		"error":        "Could not parse JSON from response",
		"raw_response": truncateRunes(m.Raw, rawPreviewLimit),
	})
	if err != nil {
		return json.RawMessage(`{"error":"Could not parse JSON from response"}`)
	}
	return b
}

// ParseJSON removes ```json fences and decodes the span from the first '{'
// to the last '}'. Blank input parses as an empty object.
func ParseJSON(raw string) Outcome {
	if strings.TrimSpace(raw) == "" {
		return Parsed{Value: json.RawMessage(`{}`)}
	}
	cleaned := jsonFence.ReplaceAllString(raw, "")
	cleaned = trailingBareFence.ReplaceAllString(cleaned, "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return Malformed{Raw: raw}
	}
	var v map[string]any
	if err := UnmarshalFlex([]byte(cleaned[start:end+1]), &v); err != nil {
		return Malformed{Raw: raw}
	}
	b, err := MarshalNoEscape(v)
	if err != nil {
		return Malformed{Raw: raw}
	}
	return Parsed{Value: b}
}

// JSONValue returns the value to record for an outcome: the parsed object or
// the malformed envelope.
func JSONValue(o Outcome) json.RawMessage {
	switch v := o.(type) {
	case Parsed:
		return v.Value
	case Malformed:
		return v.Envelope()
	default:
		return json.RawMessage(`{}`)
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
