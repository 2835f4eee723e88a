// Package wordidx is a lightweight, word-only indexer.
//
// Words start with a Unicode letter or '_' and continue with letters, digits
// or '_'. Numbers and symbols are delimiters. Find matches exactly; Contains
// and Overlap ignore case.
package wordidx

import (
	"hash/fnv"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Word is a collected token and the 1-based line it appears on.
type Word struct {
	Text string
	Line int
}

// Index holds the words of one text and a hash-based posting map.
type Index struct {
	Words []Word
	post  map[uint64][]int // hash -> indices into Words
	fold  map[string]struct{}
}

// Build parses src and collects its words.
func Build(src []byte) *Index {
	idx := &Index{post: make(map[uint64][]int), fold: make(map[string]struct{})}
	line := 1

	isStart := func(r rune) bool { return r == '_' || unicode.IsLetter(r) }
	isCont := func(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

	i := 0
	for i < len(src) {
		r, w := utf8.DecodeRune(src[i:])
		if r == '\n' {
			line++
			i += w
			continue
		}
		if r == utf8.RuneError && w == 1 {
			i++
			continue
		}
		if isStart(r) {
			start := i
			i += w
			for i < len(src) {
				rc, wc := utf8.DecodeRune(src[i:])
				if rc == '\n' || !isCont(rc) {
					break
				}
				i += wc
			}
			idx.add(string(src[start:i]), line)
			continue
		}
		i += w
	}
	return idx
}

// BuildString is Build for string input.
func BuildString(s string) *Index {
	return Build([]byte(s))
}

func hashWord(word string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	return h.Sum64()
}

func (x *Index) add(word string, line int) {
	idx := len(x.Words)
	x.Words = append(x.Words, Word{Text: word, Line: line})
	key := hashWord(word)
	x.post[key] = append(x.post[key], idx)
	x.fold[strings.ToLower(word)] = struct{}{}
}

// Find returns the lines of exact matches for word.
func (x *Index) Find(word string) []int {
	if x == nil || x.post == nil {
		return nil
	}
	var out []int
	for _, i := range x.post[hashWord(word)] {
		if i >= 0 && i < len(x.Words) && x.Words[i].Text == word {
			out = append(out, x.Words[i].Line)
		}
	}
	return out
}

// Contains reports whether word occurs, ignoring case.
func (x *Index) Contains(word string) bool {
	if x == nil {
		return false
	}
	_, ok := x.fold[strings.ToLower(word)]
	return ok
}

// Overlap counts the terms that occur in x, ignoring case.
func (x *Index) Overlap(terms []string) int {
	n := 0
	for _, t := range terms {
		if x.Contains(t) {
			n++
		}
	}
	return n
}

// Terms returns the distinct lowercased words of s with at least minLen
// runes, sorted.
func Terms(s string, minLen int) []string {
	idx := BuildString(s)
	out := make([]string, 0, len(idx.fold))
	for w := range idx.fold {
		if utf8.RuneCountInString(w) >= minLen {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}
