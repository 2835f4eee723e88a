package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CODESIGHT_CONFIG", "")
	t.Setenv("PORT", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.SynthesisModel)
	assert.Equal(t, WorkerConfig{Contexts: 10, Analysis: 5, Questions: 5}, cfg.Workers)
	assert.EqualValues(t, 1<<20, cfg.Analysis.MaxFileBytes)
	assert.Error(t, cfg.Validate(), "gemini without a key")
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "codesight.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
llm:
  provider: ollama
  ollama_model: llama3
  call_timeout: 45s
workers:
  questions: 2
store:
  kind: sqlite
allowed_origins:
  - https://app.example.com
`), 0o644))

	t.Setenv("CODESIGHT_CONFIG", path)
	t.Setenv("PORT", "")
	t.Setenv("QUESTION_WORKERS", "8")
	t.Setenv("LLM_RPS", "1.5")
	t.Setenv("REPORT_STORE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.OllamaModel)
	assert.Equal(t, 45*time.Second, cfg.LLM.CallTimeout)
	assert.Equal(t, 8, cfg.Workers.Questions)
	assert.Equal(t, 10, cfg.Workers.Contexts)
	assert.InDelta(t, 1.5, cfg.LLM.RPS, 1e-9)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AllowedOriginsFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CODESIGHT_CONFIG", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, ,http://localhost:3000 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o644))
	t.Setenv("CODESIGHT_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_DUR", "30")
	t.Setenv("X_BAD", "nope")
	assert.Equal(t, 30*time.Second, envDuration("X_DUR", time.Minute))
	assert.Equal(t, 7, envInt("X_BAD", 7))
	assert.True(t, envBool("X_BAD", true))
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, ":80", normalizePort("80"))
	assert.Equal(t, "localhost:80", normalizePort("localhost:80"))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "fake"
	assert.NoError(t, cfg.Validate())
	cfg.LLM.Provider = "openai"
	assert.Error(t, cfg.Validate())
	cfg.LLM.Provider = "fake"
	cfg.Workers.Questions = 0
	assert.Error(t, cfg.Validate())
}
