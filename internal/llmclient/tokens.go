package llmclient

import "strings"

// CountTokens provides a rough token count for text. Providers without a
// local tokenizer use it to budget prompts against TokenCapacity.
// It counts whitespace-delimited words and falls back to a character-based heuristic.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := len(text) / 4
	// Source code is punctuation-dense; take the larger estimate.
	if chars > words {
		return chars
	}
	if words == 0 {
		return 1
	}
	return words
}
