package reportstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects SQL flavour and driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) driver() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// ph returns the n-th (1-based) bind placeholder.
func (d Dialect) ph(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) schema() []string {
	if d == Postgres {
		return []string{`
CREATE TABLE IF NOT EXISTS report_artifacts (
    id SERIAL PRIMARY KEY,
    session_id TEXT NOT NULL,
    name TEXT NOT NULL,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    size BIGINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    UNIQUE(session_id, name)
)`,
			`CREATE INDEX IF NOT EXISTS idx_report_artifacts_session ON report_artifacts(session_id)`,
		}
	}
	return []string{`
CREATE TABLE IF NOT EXISTS report_artifacts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    name TEXT NOT NULL,
    content BLOB NOT NULL DEFAULT x'',
    size INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(session_id, name)
)`,
		`CREATE INDEX IF NOT EXISTS idx_report_artifacts_session ON report_artifacts(session_id)`,
	}
}

// SQLStore keeps artifacts in one table on postgres or sqlite.
type SQLStore struct {
	db         *sql.DB
	dialect    Dialect
	schemaOnce sync.Once
	schemaErr  error
}

// OpenSQL opens and pings the database for dialect.
func OpenSQL(dialect Dialect, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", dialect)
	}
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLStore(db, dialect), nil
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		for _, stmt := range s.dialect.schema() {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				s.schemaErr = fmt.Errorf("ensure schema: %w", err)
				return
			}
		}
	})
	return s.schemaErr
}

func (s *SQLStore) Put(ctx context.Context, sessionID, name string, content []byte) error {
	sessionID, name, err := cleanKey(sessionID, name)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	d := s.dialect
	q := fmt.Sprintf(`
INSERT INTO report_artifacts (session_id, name, content, size, updated_at)
VALUES (%s, %s, %s, %s, %s)
ON CONFLICT (session_id, name)
DO UPDATE SET content=excluded.content, size=excluded.size, updated_at=excluded.updated_at
`, d.ph(1), d.ph(2), d.ph(3), d.ph(4), d.ph(5))
	_, err = s.db.ExecContext(ctx, q, sessionID, name, content, int64(len(content)), time.Now().UTC())
	return err
}

func (s *SQLStore) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	sessionID, name, err := cleanKey(sessionID, name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	d := s.dialect
	var content []byte
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT content FROM report_artifacts WHERE session_id=%s AND name=%s`, d.ph(1), d.ph(2)),
		sessionID, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return content, err
}

func (s *SQLStore) List(ctx context.Context, sessionID string) ([]string, error) {
	sessionID, err := cleanSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT name FROM report_artifacts WHERE session_id=%s ORDER BY name`, s.dialect.ph(1)),
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
