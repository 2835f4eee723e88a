// Package config loads runtime settings from .env, an optional YAML file and
// the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string         `yaml:"port"`
	Env      string         `yaml:"env"`
	LLM      LLMConfig      `yaml:"llm"`
	Workers  WorkerConfig   `yaml:"workers"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Session  SessionConfig  `yaml:"session"`

	AllowedOrigins []string `yaml:"allowed_origins"` // CORS; empty allows any
}

type LLMConfig struct {
	Provider       string        `yaml:"provider"` // gemini | ollama | fake
	APIKey         string        `yaml:"api_key"`
	QueryModel     string        `yaml:"query_model"`
	SynthesisModel string        `yaml:"synthesis_model"`
	OllamaHost     string        `yaml:"ollama_host"`
	OllamaModel    string        `yaml:"ollama_model"`
	TokenLimit     int           `yaml:"token_limit"`
	RPS            float64       `yaml:"rps"`
	Burst          int           `yaml:"burst"`
	Retries        int           `yaml:"retries"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
}

type WorkerConfig struct {
	Contexts  int `yaml:"contexts"`
	Analysis  int `yaml:"analysis"`
	Questions int `yaml:"questions"`
}

type AnalysisConfig struct {
	MaxFileBytes int64    `yaml:"max_file_bytes"`
	WorkDir      string   `yaml:"work_dir"`
	Extensions   []string `yaml:"extensions"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type StoreConfig struct {
	Kind        string   `yaml:"kind"` // memory | postgres | sqlite | s3
	DatabaseURL string   `yaml:"database_url"`
	SQLitePath  string   `yaml:"sqlite_path"`
	CacheSize   int      `yaml:"cache_size"`
	S3          S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type SessionConfig struct {
	Capacity int `yaml:"capacity"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port: ":8081",
		Env:  "local",
		LLM: LLMConfig{
			Provider:       "gemini",
			QueryModel:     "gemini-2.5-flash",
			SynthesisModel: "gemini-2.5-flash",
			OllamaHost:     "http://localhost:11434",
			OllamaModel:    "gemma3:latest",
			Burst:          1,
			Retries:        3,
			CallTimeout:    2 * time.Minute,
		},
		Workers:  WorkerConfig{Contexts: 10, Analysis: 5, Questions: 5},
		Analysis: AnalysisConfig{MaxFileBytes: 1 << 20},
		Log:      LogConfig{Level: "info", Format: "json"},
		Store: StoreConfig{
			Kind:       "memory",
			SQLitePath: "codesight.db",
			CacheSize:  1024,
			S3:         S3Config{Region: "us-east-1", Bucket: "codesight-reports", UseSSL: true},
		},
		Session: SessionConfig{Capacity: 32},
	}
}

// Load reads .env, then the YAML file named by CODESIGHT_CONFIG (if any),
// then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CODESIGHT_CONFIG")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.Port = normalizePort(cfg.Port)
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = firstNonEmpty(env("PORT"), c.Port)
	c.Env = firstNonEmpty(env("APP_ENV"), c.Env)

	c.LLM.Provider = strings.ToLower(firstNonEmpty(env("LLM_PROVIDER"), c.LLM.Provider))
	c.LLM.APIKey = firstNonEmpty(env("GEMINI_API_KEY"), env("GOOGLE_API_KEY"), c.LLM.APIKey)
	c.LLM.QueryModel = firstNonEmpty(env("QUERY_MODEL"), c.LLM.QueryModel)
	c.LLM.SynthesisModel = firstNonEmpty(env("SYNTHESIS_MODEL"), c.LLM.SynthesisModel)
	c.LLM.OllamaHost = firstNonEmpty(env("OLLAMA_HOST"), c.LLM.OllamaHost)
	c.LLM.OllamaModel = firstNonEmpty(env("OLLAMA_MODEL"), c.LLM.OllamaModel)
	c.LLM.TokenLimit = envInt("LLM_TOKEN_LIMIT", c.LLM.TokenLimit)
	c.LLM.RPS = envFloat("LLM_RPS", c.LLM.RPS)
	c.LLM.Burst = envInt("LLM_BURST", c.LLM.Burst)
	c.LLM.Retries = envInt("LLM_RETRIES", c.LLM.Retries)
	c.LLM.CallTimeout = envDuration("LLM_CALL_TIMEOUT", c.LLM.CallTimeout)

	c.Workers.Contexts = envInt("CONTEXT_WORKERS", c.Workers.Contexts)
	c.Workers.Analysis = envInt("ANALYSIS_WORKERS", c.Workers.Analysis)
	c.Workers.Questions = envInt("QUESTION_WORKERS", c.Workers.Questions)

	c.Analysis.MaxFileBytes = int64(envInt("MAX_FILE_BYTES", int(c.Analysis.MaxFileBytes)))
	c.Analysis.WorkDir = firstNonEmpty(env("WORK_DIR"), c.Analysis.WorkDir)
	if exts := env("SOURCE_EXTENSIONS"); exts != "" {
		c.Analysis.Extensions = strings.Split(exts, ",")
	}

	c.Log.Level = firstNonEmpty(env("LOG_LEVEL"), c.Log.Level)
	c.Log.Format = firstNonEmpty(env("LOG_FORMAT"), c.Log.Format)

	c.Store.Kind = firstNonEmpty(env("REPORT_STORE"), c.Store.Kind)
	c.Store.DatabaseURL = firstNonEmpty(env("DATABASE_URL"), c.Store.DatabaseURL)
	c.Store.SQLitePath = firstNonEmpty(env("SQLITE_PATH"), c.Store.SQLitePath)
	c.Store.S3.Endpoint = firstNonEmpty(env("ARTIFACT_S3_ENDPOINT"), c.Store.S3.Endpoint)
	c.Store.S3.Region = firstNonEmpty(env("ARTIFACT_S3_REGION"), c.Store.S3.Region)
	c.Store.S3.AccessKey = firstNonEmpty(env("ARTIFACT_S3_ACCESS_KEY"), env("MINIO_ROOT_USER"), c.Store.S3.AccessKey)
	c.Store.S3.SecretKey = firstNonEmpty(env("ARTIFACT_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD"), c.Store.S3.SecretKey)
	c.Store.S3.Bucket = firstNonEmpty(env("ARTIFACT_S3_BUCKET"), c.Store.S3.Bucket)
	c.Store.S3.UseSSL = envBool("ARTIFACT_S3_USE_SSL", c.Store.S3.UseSSL)

	c.Session.Capacity = envInt("SESSION_CAPACITY", c.Session.Capacity)

	if origins := env("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports settings that would fail at first use.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "":
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case "ollama", "fake":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.Workers.Contexts <= 0 || c.Workers.Analysis <= 0 || c.Workers.Questions <= 0 {
		return fmt.Errorf("worker bounds must be positive")
	}
	return nil
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string, def int) int {
	raw := env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	raw := env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := env(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
