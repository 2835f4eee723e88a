// Package workerruntime assembles the long-lived analysis dependencies from
// configuration: LLM clients, the pipeline, the report store and the session
// manager. Both the API server and the CLI start from here.
package workerruntime

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"codesight/internal/analysis"
	"codesight/internal/codebase"
	"codesight/internal/config"
	"codesight/internal/querycontext"
	"codesight/internal/reportstore"
	"codesight/internal/session"
)

type Runtime struct {
	Config   *config.Config
	LLM      LLMClients
	Pipeline *analysis.Pipeline
	Store    reportstore.Store
	Sessions *session.Manager

	storeCloser io.Closer
	log         *zap.Logger
}

// New builds a Runtime. The caller owns it and must Close it.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	clients, err := NewLLMClients(ctx, cfg.LLM, log.Named("llm"))
	if err != nil {
		return nil, err
	}
	return NewWithClients(cfg, clients, log)
}

// NewWithClients builds a Runtime around existing clients; Close closes them.
func NewWithClients(cfg *config.Config, clients LLMClients, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, closer, err := reportstore.Open(reportstore.Config{
		Kind:        cfg.Store.Kind,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
		CacheSize:   cfg.Store.CacheSize,
		S3: reportstore.S3Config{
			Endpoint:  cfg.Store.S3.Endpoint,
			Region:    cfg.Store.S3.Region,
			AccessKey: cfg.Store.S3.AccessKey,
			SecretKey: cfg.Store.S3.SecretKey,
			Bucket:    cfg.Store.S3.Bucket,
			UseSSL:    cfg.Store.S3.UseSSL,
		},
	})
	if err != nil {
		_ = clients.Close()
		return nil, err
	}

	pipeline := NewPipeline(cfg, clients, log)
	sessions, err := session.NewManager(session.Options{
		Pipeline:        pipeline,
		Client:          clients.Synthesis,
		Store:           store,
		WorkDir:         cfg.Analysis.WorkDir,
		Capacity:        cfg.Session.Capacity,
		QuestionWorkers: cfg.Workers.Questions,
		Log:             log.Named("session"),
	})
	if err != nil {
		_ = closer.Close()
		_ = clients.Close()
		return nil, fmt.Errorf("session manager: %w", err)
	}

	return &Runtime{
		Config:      cfg,
		LLM:         clients,
		Pipeline:    pipeline,
		Store:       store,
		Sessions:    sessions,
		storeCloser: closer,
		log:         log,
	}, nil
}

// NewPipeline wires the analysis pipeline for cfg.
func NewPipeline(cfg *config.Config, clients LLMClients, log *zap.Logger) *analysis.Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []codebase.Option{}
	if len(cfg.Analysis.Extensions) > 0 {
		opts = append(opts, codebase.WithExtensions(cfg.Analysis.Extensions...))
	}
	if cfg.Analysis.MaxFileBytes > 0 {
		opts = append(opts, codebase.WithMaxFileBytes(cfg.Analysis.MaxFileBytes))
	}
	analysisLog := log.Named("analysis")
	return &analysis.Pipeline{
		Structurer:  codebase.NewStructurer(log.Named("structurer"), opts...),
		Builder:     querycontext.NewBuilder(querycontext.NewEngine(clients.Query), cfg.Workers.Contexts, log.Named("contexts")),
		Dispatcher:  analysis.NewDispatcher(clients.Synthesis, cfg.Workers.Analysis, analysisLog),
		Synthesizer: analysis.NewSynthesizer(clients.Synthesis, analysisLog),
		Log:         analysisLog,
	}
}

// Close discards live sessions and releases the store and clients.
func (r *Runtime) Close() error {
	r.Sessions.Close()
	return errors.Join(r.storeCloser.Close(), r.LLM.Close())
}
