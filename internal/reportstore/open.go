package reportstore

import (
	"fmt"
	"io"
	"strings"
)

// Config selects and configures a backend.
type Config struct {
	Kind        string // memory | postgres | sqlite | s3
	DatabaseURL string
	SQLitePath  string
	S3          S3Config
	CacheSize   int
}

// Open builds the configured backend. Durable backends are wrapped in a
// CachedStore. The returned closer releases database handles.
func Open(cfg Config) (Store, io.Closer, error) {
	var (
		backend Store
		closer  io.Closer = nopCloser{}
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "memory":
		return NewMemoryStore(), closer, nil
	case "postgres", "postgresql":
		s, err := OpenSQL(Postgres, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres report store: %w", err)
		}
		backend, closer = s, s
	case "sqlite":
		s, err := OpenSQL(SQLite, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite report store: %w", err)
		}
		backend, closer = s, s
	case "s3":
		s, err := NewS3Store(cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("open s3 report store: %w", err)
		}
		backend = s
	default:
		return nil, nil, fmt.Errorf("unknown report store %q", cfg.Kind)
	}
	cached, err := NewCachedStore(backend, cfg.CacheSize)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return cached, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
