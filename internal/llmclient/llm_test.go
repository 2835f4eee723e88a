package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermanentErrorIsDetectedThroughWrapping(t *testing.T) {
	base := errors.New("quota exhausted")
	err := fmt.Errorf("call failed: %w", NewPermanentError(base))

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens("   "))
	assert.Equal(t, 3, CountTokens("one two three"))
	// punctuation-heavy code is counted by characters
	assert.Equal(t, 6, CountTokens("x:=f(a,b);y:=g(c,d);z:=h(e)"))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Provider{Name: "openai"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := New(context.Background(), Provider{Name: "gemini", Model: "gemini-2.5-flash"})
	require.Error(t, err)
}

func TestNewOllamaClient(t *testing.T) {
	c, err := New(context.Background(), Provider{Name: "ollama", Host: "http://127.0.0.1:11434", Model: "gemma3:latest"})
	require.NoError(t, err)
	assert.Equal(t, "Ollama:gemma3:latest", c.Name())
	assert.Equal(t, 8000, c.TokenCapacity())
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gemma3", req.Model)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"model":"gemma3","response":"echo: %s","done":true}`, req.Prompt)
	}))
	defer srv.Close()

	c, err := NewOllamaClient(srv.URL, "gemma3", 0)
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
}

func TestOllamaGenerateReturnsWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `{"response":"late","done":true}`)
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewOllamaClient(srv.URL, "gemma3", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.Generate(ctx, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	_, err = c.Generate(cancelled, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}
