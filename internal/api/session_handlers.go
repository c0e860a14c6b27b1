package api

import (
	"net/http"

	"github.com/nookapp/nook-server/internal/http/response"
	"github.com/nookapp/nook-server/internal/session"
)

// handleGetSession answers a one-shot "where should this client be"
// for the caller and route. Anonymous callers are a valid state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Query().Get("route")
	if route == "" {
		route = session.TargetHome
	}

	view, err := s.sessionService.Evaluate(r.Context(), getUserID(r.Context()), route)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, view, s.logger)
}
