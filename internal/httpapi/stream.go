package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lcollia/paytrack/internal/payment"
)

type statusUpdate struct {
	Type string `json:"type"`
	payment.Record
}

type streamError struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// handleStatusWS streams status changes for one session so the success page
// does not have to poll. The first message is the current view (pull path
// included); afterwards only pushed store state is watched, and the stream
// closes once the session reaches a terminal answer.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: the client never sends data, but reading is how we learn
	// it went away.
	go func() {
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	writeJSON := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}
	closeStream := func() {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}

	last, err := s.deps.Reader.Query(ctx, sessionID)
	if err != nil {
		code := "lookup_failed"
		if errors.Is(err, payment.ErrNotFound) {
			code = "session_not_found"
		}
		_ = writeJSON(streamError{Type: "error", Code: code})
		closeStream()
		return
	}

	if err := writeJSON(statusUpdate{Type: "status_update", Record: last}); err != nil {
		return
	}
	if last.Status == payment.StatusComplete {
		closeStream()
		return
	}

	_, seenStore := s.deps.Store.Get(sessionID)

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec, ok := s.deps.Store.Get(sessionID)
			if !ok {
				if seenStore {
					// The record was removed: payment failed or the
					// session expired.
					_ = writeJSON(streamError{Type: "error", Code: "session_removed", Detail: "session has no valid paid state"})
					closeStream()
					return
				}
				continue
			}
			seenStore = true

			if rec == last {
				continue
			}
			last = rec
			if err := writeJSON(statusUpdate{Type: "status_update", Record: rec}); err != nil {
				return
			}
			if rec.Status == payment.StatusComplete {
				closeStream()
				return
			}
		}
	}
}
