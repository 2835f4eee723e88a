package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"codesight/internal/analysis"
	"codesight/internal/qna"
	"codesight/internal/session"
)

// Sessions is the part of session.Manager the handlers use.
type Sessions interface {
	Start(ctx context.Context, req session.StartRequest, obs analysis.Observer) (*session.AnalysisSession, error)
	Get(id string) (*session.AnalysisSession, error)
	Reset(id string) error
	Ask(ctx context.Context, id, question string) (qna.Answer, error)
	StoredArtifact(ctx context.Context, id, name string) ([]byte, error)
}

type AnalysisHandler struct {
	sessions  Sessions
	progress  *ProgressHub
	uploadDir string
	maxUpload int64
	log       *zap.Logger
}

// Options configures an AnalysisHandler.
type Options struct {
	UploadDir      string // parent of uploaded trees; os.TempDir when empty
	MaxUploadBytes int64
	Log            *zap.Logger
}

const defaultMaxUploadBytes = 256 << 20

func NewAnalysisHandler(sessions Sessions, progress *ProgressHub, opts Options) *AnalysisHandler {
	if progress == nil {
		progress = NewProgressHub(0)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalysisHandler{
		sessions:  sessions,
		progress:  progress,
		uploadDir: opts.UploadDir,
		maxUpload: opts.MaxUploadBytes,
		log:       log,
	}
}

func (h *AnalysisHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
