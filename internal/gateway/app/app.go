package app

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"

	"codesight/internal/gateway/handler"
	"codesight/internal/gateway/server"
	"codesight/internal/workerruntime"
)

type App struct {
	server  *server.Server
	runtime *workerruntime.Runtime
}

// New wires the HTTP surface around rt. The App takes ownership of rt.
func New(rt *workerruntime.Runtime, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := rt.Config
	gwLog := log.Named("gateway")

	// Dependencies
	progress := handler.NewProgressHub(cfg.Session.Capacity * 8)
	analysisHandler := handler.NewAnalysisHandler(rt.Sessions, progress, handler.Options{
		UploadDir: cfg.Analysis.WorkDir,
		Log:       gwLog,
	})

	// Routing & Server
	mux := server.NewMux(analysisHandler, cfg.AllowedOrigins, gwLog)
	srv := server.New(cfg.Port, mux, gwLog)

	return &App{server: srv, runtime: rt}
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Serve(l net.Listener) error {
	return a.server.Serve(l)
}

// Shutdown stops accepting requests, waits for in-flight ones, then releases
// the runtime.
func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(a.server.Shutdown(ctx), a.runtime.Close())
}
