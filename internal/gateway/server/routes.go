package server

import (
	"net/http"

	"go.uber.org/zap"

	"codesight/internal/gateway/handler"
	"codesight/internal/gateway/middleware"
)

// NewMux routes the analysis API. allowedOrigins feeds the CORS allowlist.
func NewMux(analysisHandler *handler.AnalysisHandler, allowedOrigins []string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", analysisHandler.HandleHealth)

	// Analyses
	mux.HandleFunc("POST /analyses", analysisHandler.HandleCreate)
	mux.HandleFunc("GET /analyses/{id}/report", analysisHandler.HandleReport)
	mux.HandleFunc("GET /analyses/{id}/structure", analysisHandler.HandleStructure)
	mux.HandleFunc("POST /analyses/{id}/questions", analysisHandler.HandleQuestion)
	mux.HandleFunc("DELETE /analyses/{id}", analysisHandler.HandleDelete)
	mux.HandleFunc("GET /analyses/{id}/events", analysisHandler.HandleEvents)

	// Middleware
	return middleware.CORS(allowedOrigins)(middleware.AccessLog(log)(mux))
}
