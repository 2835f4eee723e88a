package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"codesight/internal/safeio"
)

const (
	uploadFilesField = "files"
	uploadIDField    = "id"
)

type upload struct {
	root  string
	id    string
	files int
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// receiveUpload streams the multipart body into a fresh directory. Each
// "files" part keeps the relative path from its filename so uploaded folders
// keep their layout.
func (h *AnalysisHandler) receiveUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	if h.uploadDir != "" {
		if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(h.uploadDir, "codesight-upload-")
	if err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	up := &upload{root: dir}
	if err := h.readParts(mr, up); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	if up.files == 0 {
		_ = os.RemoveAll(dir)
		return nil, errors.New("no files uploaded")
	}
	h.log.Info("upload received", zap.String("dir", dir), zap.Int("files", up.files))
	return up, nil
}

func (h *AnalysisHandler) readParts(mr *multipart.Reader, up *upload) error {
	root, err := safeio.NewRoot(up.root)
	if err != nil {
		return err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read multipart: %w", err)
		}
		switch part.FormName() {
		case uploadIDField:
			b, err := io.ReadAll(io.LimitReader(part, 128))
			if err != nil {
				return fmt.Errorf("read id field: %w", err)
			}
			up.id = strings.TrimSpace(string(b))
		case uploadFilesField:
			name := uploadPath(part)
			if name == "" {
				return errors.New("file part without a filename")
			}
			if err := saveUploadPart(root, name, part); err != nil {
				return err
			}
			up.files++
		}
		_ = part.Close()
	}
}

func saveUploadPart(root *safeio.Root, name string, src io.Reader) error {
	f, err := root.Create(name)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return fmt.Errorf("save %s: %w", name, err)
	}
	return f.Close()
}

// uploadPath returns the filename parameter as sent. Part.FileName drops the
// directory, which folder uploads need.
func uploadPath(part *multipart.Part) string {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	name := strings.ReplaceAll(params["filename"], "\\", "/")
	return strings.TrimLeft(name, "/")
}
