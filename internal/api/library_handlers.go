package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nookapp/nook-server/internal/http/response"
	"github.com/nookapp/nook-server/internal/service"
)

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req service.AddEntryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	entry, err := s.libraryService.Add(r.Context(), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, entry, s.logger)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.libraryService.List(r.Context(), getUserID(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{
		"entries": entries,
		"total":   len(entries),
	}, s.logger)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateEntryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	entry, err := s.libraryService.Update(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, entry, s.logger)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.libraryService.Remove(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

func (s *Server) handleSearchShelf(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var statuses []string
	if raw := q.Get("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	limit := parseIntParam(q.Get("limit"), 20, 100)
	offset := parseIntParam(q.Get("offset"), 0, 10000)

	result, err := s.libraryService.Search(r.Context(), getUserID(r.Context()), q.Get("q"), statuses, limit, offset)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// parseIntParam parses a non-negative query parameter with a fallback
// and an upper bound.
func parseIntParam(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}
