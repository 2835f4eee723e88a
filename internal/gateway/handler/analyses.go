package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codesight/internal/codebase"
	"codesight/internal/qna"
	"codesight/internal/reportstore"
	"codesight/internal/session"
)

const maxJSONBody = 1 << 20

type createAnalysisRequest struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type createAnalysisResponse struct {
	SessionID string            `json:"session_id"`
	FileCount int               `json:"file_count"`
	Report    map[string]string `json:"report"`
}

type reportResponse struct {
	SessionID string            `json:"session_id"`
	Report    map[string]string `json:"report"`
	Archived  bool              `json:"archived,omitempty"`
}

type structureResponse struct {
	SessionID string          `json:"session_id"`
	FileCount int             `json:"file_count"`
	Structure json.RawMessage `json:"structure"`
	Archived  bool            `json:"archived,omitempty"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type questionResponse struct {
	Answer string     `json:"answer"`
	Branch qna.Branch `json:"branch"`
	Files  []string   `json:"files,omitempty"`
}

// HandleCreate runs a new analysis over a server-side path (JSON body) or an
// uploaded tree (multipart "files" parts). The response carries the report;
// section failures are part of the report text, not HTTP errors.
func (h *AnalysisHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	var req session.StartRequest

	if isMultipart(r) {
		up, err := h.receiveUpload(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = session.StartRequest{Root: up.root, OwnsRoot: true}
		if up.id != "" {
			id = up.id
		}
	} else {
		var in createAnalysisRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		path := strings.TrimSpace(in.Path)
		if path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			writeError(w, http.StatusBadRequest, "path is not a readable directory")
			return
		}
		req = session.StartRequest{Root: filepath.Clean(path)}
		if in.ID != "" {
			id = strings.TrimSpace(in.ID)
		}
	}

	if id == "" {
		id = uuid.NewString()
	}
	u, err := uuid.Parse(id)
	if err != nil {
		if req.OwnsRoot {
			_ = os.RemoveAll(req.Root)
		}
		writeError(w, http.StatusBadRequest, "id must be a UUID")
		return
	}
	req.ID = u.String()

	s, err := h.sessions.Start(r.Context(), req, h.progress.Observer(req.ID))
	if errors.Is(err, session.ErrSessionExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.progress.Finish(req.ID)
	if err != nil {
		h.log.Warn("analysis failed to start", zap.String("session", req.ID), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, createAnalysisResponse{
		SessionID: s.ID,
		FileCount: s.FileCount(),
		Report:    s.Report.Fields(),
	})
}

// HandleReport returns the report of a live session, falling back to the
// persisted copy once the session is gone. ?format=markdown returns the
// markdown export.
func (h *AnalysisHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	markdown := strings.EqualFold(r.URL.Query().Get("format"), "markdown")

	if s, err := h.sessions.Get(id); err == nil {
		if markdown {
			writeMarkdown(w, s.Report.Markdown())
			return
		}
		writeJSON(w, http.StatusOK, reportResponse{SessionID: id, Report: s.Report.Fields()})
		return
	}

	name := reportstore.ReportJSON
	if markdown {
		name = reportstore.ReportMarkdown
	}
	b, ok := h.stored(w, r, id, name)
	if !ok {
		return
	}
	if markdown {
		writeMarkdown(w, string(b))
		return
	}
	var fields map[string]string
	if err := json.Unmarshal(b, &fields); err != nil {
		h.log.Error("stored report is corrupt", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stored report is unreadable")
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{SessionID: id, Report: fields, Archived: true})
}

// HandleStructure returns the structure snapshot and its file count.
func (h *AnalysisHandler) HandleStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	if s, err := h.sessions.Get(id); err == nil {
		raw, err := os.ReadFile(filepath.Join(s.WorkDir, codebase.SnapshotFile))
		if err == nil {
			writeJSON(w, http.StatusOK, structureResponse{SessionID: id, FileCount: s.FileCount(), Structure: raw})
			return
		}
		h.log.Warn("live snapshot unreadable, trying store", zap.String("session", id), zap.Error(err))
	}

	b, ok := h.stored(w, r, id, reportstore.Structure)
	if !ok {
		return
	}
	tree, err := codebase.DecodeSnapshot(b)
	if err != nil {
		h.log.Error("stored structure is corrupt", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stored structure is unreadable")
		return
	}
	writeJSON(w, http.StatusOK, structureResponse{SessionID: id, FileCount: tree.Count(), Structure: b, Archived: true})
}

// HandleQuestion answers a question against a live session. Q&A failures
// come back as answer text.
func (h *AnalysisHandler) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	var in questionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	ans, err := h.sessions.Ask(r.Context(), id, question)
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "analysis session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{Answer: ans.Display(), Branch: ans.Branch, Files: ans.Files})
}

// HandleDelete discards a session so a new analysis can start clean.
func (h *AnalysisHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Reset(id); err != nil {
		writeError(w, http.StatusNotFound, "analysis session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AnalysisHandler) stored(w http.ResponseWriter, r *http.Request, id, name string) ([]byte, bool) {
	b, err := h.sessions.StoredArtifact(r.Context(), id, name)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "analysis session not found")
		return nil, false
	case err != nil:
		h.log.Error("read stored artifact", zap.String("session", id), zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "artifact store unavailable")
		return nil, false
	}
	return b, true
}

func writeMarkdown(w http.ResponseWriter, md string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}
