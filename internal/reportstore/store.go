// Package reportstore persists finished analysis artifacts keyed by session.
package reportstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Artifact names written for every finished analysis.
const (
	ReportJSON     = "report.json"
	ReportMarkdown = "report.md"
	Structure      = "codebase_structure.json"
)

// Store defines operations for persisting session artifacts.
type Store interface {
	Put(ctx context.Context, sessionID, name string, content []byte) error
	Get(ctx context.Context, sessionID, name string) ([]byte, error)
	List(ctx context.Context, sessionID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

func cleanKey(sessionID, name string) (string, string, error) {
	sessionID = strings.TrimSpace(sessionID)
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if sessionID == "" {
		return "", "", fmt.Errorf("session_id is required")
	}
	if name == "" {
		return "", "", fmt.Errorf("name is required")
	}
	return sessionID, name, nil
}

func cleanSession(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return sessionID, nil
}
