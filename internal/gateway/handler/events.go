package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codesight/internal/analysis"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type eventsWSOutbound struct {
	Type      string          `json:"type"` // subscribed | event | closed
	SessionID string          `json:"sessionId"`
	Event     *analysis.Event `json:"event,omitempty"`
}

// HandleEvents streams pipeline progress for one session over a websocket.
// Clients may subscribe before POST /analyses by choosing the session ID.
func (h *AnalysisHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	conn, err := eventsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		h.log.Warn("events ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	// The read loop only services control frames and notices disconnects.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	events, unsubscribe := h.progress.Subscribe(id)
	defer unsubscribe()

	write := func(out any) error {
		if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(out)
	}
	if err := write(eventsWSOutbound{Type: "subscribed", SessionID: id}); err != nil {
		return
	}

	ticker := time.NewTicker(eventsWSPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if err := write(eventsWSOutbound{Type: "closed", SessionID: id}); err != nil {
					return
				}
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "analysis finished"),
					time.Now().Add(eventsWSWriteWait))
				return
			}
			if err := write(eventsWSOutbound{Type: "event", SessionID: id, Event: &ev}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "session id must be a UUID")
		return "", false
	}
	return u.String(), true
}
