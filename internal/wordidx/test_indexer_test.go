package wordidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_Simple(t *testing.T) {
	idx := Build([]byte(`_x  hello 123 world "q" foo_bar`))

	for _, w := range []string{"_x", "hello", "world", "foo_bar"} {
		assert.NotEmpty(t, idx.Find(w), w)
	}
	// numbers are delimiters; Find is exact
	for _, w := range []string{"123", "Hello"} {
		assert.Empty(t, idx.Find(w), w)
	}
}

func TestBuild_Lines(t *testing.T) {
	idx := BuildString("package main\n\nfunc main() {\n\tmain2()\n}\n")
	assert.Equal(t, []int{1, 3}, idx.Find("main"))
	assert.Equal(t, []int{4}, idx.Find("main2"))
}

func TestBuild_InvalidUTF8IsDelimiter(t *testing.T) {
	idx := Build([]byte("abc\xffdef"))
	assert.Equal(t, []int{1}, idx.Find("abc"))
	assert.Equal(t, []int{1}, idx.Find("def"))
}

func TestContainsAndOverlapIgnoreCase(t *testing.T) {
	idx := BuildString("def Login(user, Password):\n    return Session(user)\n")
	assert.True(t, idx.Contains("login"))
	assert.True(t, idx.Contains("PASSWORD"))
	assert.False(t, idx.Contains("invoice"))
	assert.Equal(t, 2, idx.Overlap([]string{"login", "session", "invoice"}))

	var nilIdx *Index
	assert.False(t, nilIdx.Contains("x"))
	assert.Nil(t, nilIdx.Find("x"))
}

func TestTerms(t *testing.T) {
	got := Terms("How does the Login flow use the session? login!", 3)
	assert.Equal(t, []string{"does", "flow", "how", "login", "session", "the", "use"}, got)
	assert.Empty(t, Terms("a b 42", 2))
}
