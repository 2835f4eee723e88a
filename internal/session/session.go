// Package session owns analysis sessions: one analysis run, its contexts and
// report, and the questions asked against it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"codesight/internal/analysis"
	"codesight/internal/codebase"
	"codesight/internal/llmclient"
	"codesight/internal/qna"
	"codesight/internal/querycontext"
	"codesight/internal/reportstore"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrInvalidID       = errors.New("session id must be a UUID")
)

// AnalysisSession is the immutable result of one analysis run. Starting a new
// analysis creates a new session rather than mutating this one.
type AnalysisSession struct {
	ID        string
	Root      string
	WorkDir   string
	Tree      *codebase.Tree
	Registry  *querycontext.Registry
	Report    analysis.Report
	CreatedAt time.Time

	ownsRoot bool
}

// FileCount is the number of analyzed source files.
func (s *AnalysisSession) FileCount() int {
	return s.Tree.Count()
}

// Router returns a question router bound to this session's contexts.
func (s *AnalysisSession) Router(client llmclient.Client, workers int, log *zap.Logger) *qna.Router {
	return qna.NewRouter(client, s.Registry, s.WorkDir, workers, log)
}

// StartRequest describes the tree to analyze.
type StartRequest struct {
	// ID is optional; callers that subscribe to progress before starting
	// choose it up front.
	ID   string
	Root string
	// OwnsRoot hands Root to the session; it is removed with the session.
	OwnsRoot bool
}

// Options configures a Manager.
type Options struct {
	Pipeline        *analysis.Pipeline
	Client          llmclient.Client // planning and synthesis for questions
	Store           reportstore.Store
	WorkDir         string // parent of per-session work dirs; os.TempDir when empty
	Capacity        int
	QuestionWorkers int
	Log             *zap.Logger
}

// Manager runs analyses and keeps the most recent sessions in an LRU.
type Manager struct {
	opts  Options
	log   *zap.Logger
	cache *lru.Cache[string, *AnalysisSession]
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Pipeline == nil || opts.Client == nil {
		return nil, fmt.Errorf("session: pipeline and client are required")
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 32
	}
	if opts.Store == nil {
		opts.Store = reportstore.NewMemoryStore()
	}
	if opts.WorkDir != "" {
		if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{opts: opts, log: log}
	cache, err := lru.NewWithEvict[string, *AnalysisSession](opts.Capacity, m.discard)
	if err != nil {
		return nil, err
	}
	m.cache = cache
	return m, nil
}

// Start runs the pipeline over req.Root and registers the new session.
func (m *Manager) Start(ctx context.Context, req StartRequest, obs analysis.Observer) (*AnalysisSession, error) {
	fail := func(err error) (*AnalysisSession, error) {
		if req.OwnsRoot {
			_ = os.RemoveAll(req.Root)
		}
		return nil, err
	}
	id, err := m.newID(req.ID)
	if err != nil {
		return fail(err)
	}
	workDir, err := os.MkdirTemp(m.opts.WorkDir, "codesight-"+id[:8]+"-")
	if err != nil {
		return fail(fmt.Errorf("create work dir: %w", err))
	}

	res, err := m.opts.Pipeline.Run(ctx, req.Root, workDir, obs)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return fail(err)
	}

	s := &AnalysisSession{
		ID:        id,
		Root:      req.Root,
		WorkDir:   workDir,
		Tree:      res.Tree,
		Registry:  res.Registry,
		Report:    res.Report,
		CreatedAt: time.Now().UTC(),
		ownsRoot:  req.OwnsRoot,
	}
	m.cache.Add(id, s)
	m.log.Info("analysis session started", zap.String("session", id), zap.Int("files", s.FileCount()))
	m.persist(ctx, s, res.SnapshotPath)
	return s, nil
}

func (m *Manager) newID(requested string) (string, error) {
	if requested == "" {
		return uuid.NewString(), nil
	}
	u, err := uuid.Parse(requested)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, requested)
	}
	id := u.String()
	if m.cache.Contains(id) {
		return "", fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	return id, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*AnalysisSession, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Reset discards a session and its work files.
func (m *Manager) Reset(id string) error {
	if !m.cache.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Ask routes a question against a live session.
func (m *Manager) Ask(ctx context.Context, id, question string) (qna.Answer, error) {
	s, err := m.Get(id)
	if err != nil {
		return qna.Answer{}, err
	}
	return s.Router(m.opts.Client, m.opts.QuestionWorkers, m.log.Named("qna")).Route(ctx, question), nil
}

// StoredArtifact reads a persisted artifact, which outlives the live session.
func (m *Manager) StoredArtifact(ctx context.Context, id, name string) ([]byte, error) {
	b, err := m.opts.Store.Get(ctx, id, name)
	if errors.Is(err, reportstore.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return b, err
}

// Close discards every live session.
func (m *Manager) Close() {
	m.cache.Purge()
}

func (m *Manager) persist(ctx context.Context, s *AnalysisSession, snapshotPath string) {
	put := func(name string, b []byte) {
		if err := m.opts.Store.Put(ctx, s.ID, name, b); err != nil {
			m.log.Warn("failed to persist artifact",
				zap.String("session", s.ID), zap.String("name", name), zap.Error(err))
		}
	}
	if b, err := json.Marshal(s.Report); err == nil {
		put(reportstore.ReportJSON, b)
	}
	put(reportstore.ReportMarkdown, []byte(s.Report.Markdown()))
	if snapshotPath != "" {
		if b, err := os.ReadFile(snapshotPath); err == nil {
			put(reportstore.Structure, b)
		}
	}
}

func (m *Manager) discard(id string, s *AnalysisSession) {
	if err := os.RemoveAll(s.WorkDir); err != nil {
		m.log.Warn("failed to remove work dir", zap.String("session", id), zap.Error(err))
	}
	if s.ownsRoot {
		if err := os.RemoveAll(s.Root); err != nil {
			m.log.Warn("failed to remove uploaded tree", zap.String("session", id), zap.Error(err))
		}
	}
	m.log.Info("analysis session discarded", zap.String("session", id))
}
