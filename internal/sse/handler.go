package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nookapp/nook-server/internal/id"
	"github.com/nookapp/nook-server/internal/session"
)

// StreamFactory builds a per-connection stream for an optional user.
// userID is empty for anonymous connections.
type StreamFactory func(userID, route string) *Stream

// Handler serves GET /api/v1/session/stream.
type Handler struct {
	newStream  StreamFactory
	verifyUser func(r *http.Request) (userID string) // Bearer token → user, "" for anonymous
	logger     *slog.Logger
}

// NewHandler creates the session stream handler.
// verifyUser extracts and validates the caller's token; it returns the
// empty string for anonymous or invalid credentials, since the stream
// itself must work for signed-out clients.
func NewHandler(newStream StreamFactory, verifyUser func(*http.Request) string, logger *slog.Logger) *Handler {
	return &Handler{
		newStream:  newStream,
		verifyUser: verifyUser,
		logger:     logger,
	}
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Early client disconnect.
	if r.Context().Err() != nil {
		return
	}

	route := r.URL.Query().Get("route")
	if route == "" {
		route = session.TargetHome
	}
	userID := h.verifyUser(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	clientID := id.MustGenerate("client")
	clientLogger := h.logger.With(
		slog.String("client_id", clientID),
		slog.String("route", route),
	)
	clientLogger.Info("session stream connected", "anonymous", userID == "")

	if err := sendEvent(w, rc, NewConnectedEvent(clientID)); err != nil {
		clientLogger.Warn("failed to send initial connection message", slog.String("error", err.Error()))
		return
	}

	stream := h.newStream(userID, route)
	err := stream.Run(r.Context(), func(event Event) error {
		return sendEvent(w, rc, event)
	})
	if err != nil {
		// Client disconnect is normal, not an error condition.
		clientLogger.Info("client disconnected during send")
		return
	}

	clientLogger.Info("session stream closed")
}

// sendEvent writes an SSE event to the response writer.
func sendEvent(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	if err := rc.Flush(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}

	// Refresh the write deadline so long-lived streams aren't killed by
	// the server's WriteTimeout.
	_ = rc.SetWriteDeadline(time.Now().Add(2 * DefaultHeartbeatInterval))

	return nil
}
