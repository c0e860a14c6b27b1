package api

import (
	"net/http"
	"strings"

	"github.com/nookapp/nook-server/internal/catalog"
	"github.com/nookapp/nook-server/internal/http/response"
)

// The /api/books envelopes below are a wire contract with the front
// end and bypass the standard response envelope. Catalog reads are
// best-effort: partial results go out as a 200, only a total failure
// becomes a 500.

type bookSearchEnvelope struct {
	Success bool                   `json:"success"`
	Results []catalog.SearchResult `json:"results"`
	Total   int                    `json:"total"`
	Error   string                 `json:"error,omitempty"`
}

type recommendationsEnvelope struct {
	Success         bool                     `json:"success"`
	Recommendations []catalog.Recommendation `json:"recommendations"`
	Error           string                   `json:"error,omitempty"`
}

type newReleasesEnvelope struct {
	Success bool              `json:"success"`
	Books   []catalog.Release `json:"books"`
	Error   string            `json:"error,omitempty"`
}

func (s *Server) handleBookSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		response.Raw(w, http.StatusOK, bookSearchEnvelope{
			Success: false,
			Results: []catalog.SearchResult{},
			Error:   "Search query is required",
		}, s.logger)
		return
	}

	limit := parseIntParam(r.URL.Query().Get("limit"), 20, 40)

	results, err := s.catalog.Search(r.Context(), q, limit)
	if err != nil && len(results) == 0 {
		s.logger.Warn("Book search failed", "query", q, "error", err)
		response.Raw(w, http.StatusInternalServerError, bookSearchEnvelope{
			Success: false,
			Results: []catalog.SearchResult{},
			Error:   "Failed to search books",
		}, s.logger)
		return
	}

	if results == nil {
		results = []catalog.SearchResult{}
	}

	response.Raw(w, http.StatusOK, bookSearchEnvelope{
		Success: true,
		Results: results,
		Total:   len(results),
	}, s.logger)
}

func (s *Server) handleBookRecommendations(w http.ResponseWriter, r *http.Request) {
	var genres []string
	if raw := strings.TrimSpace(r.URL.Query().Get("genres")); raw != "" {
		genres = strings.Split(raw, ",")
	}

	limit := parseIntParam(r.URL.Query().Get("limit"), 12, 40)

	recs, err := s.catalog.Recommendations(r.Context(), genres, limit)
	if err != nil && len(recs) == 0 {
		s.logger.Warn("Recommendations failed", "genres", genres, "error", err)
		response.Raw(w, http.StatusInternalServerError, recommendationsEnvelope{
			Success:         false,
			Recommendations: []catalog.Recommendation{},
			Error:           "Failed to fetch recommendations",
		}, s.logger)
		return
	}

	if recs == nil {
		recs = []catalog.Recommendation{}
	}

	response.Raw(w, http.StatusOK, recommendationsEnvelope{
		Success:         true,
		Recommendations: recs,
	}, s.logger)
}

func (s *Server) handleBookNewReleases(w http.ResponseWriter, r *http.Request) {
	genre := strings.TrimSpace(r.URL.Query().Get("genre"))
	limit := parseIntParam(r.URL.Query().Get("limit"), 12, 40)

	books, err := s.catalog.NewReleases(r.Context(), genre, limit)
	if err != nil && len(books) == 0 {
		s.logger.Warn("New releases failed", "genre", genre, "error", err)
		response.Raw(w, http.StatusInternalServerError, newReleasesEnvelope{
			Success: false,
			Books:   []catalog.Release{},
			Error:   "Failed to fetch new releases",
		}, s.logger)
		return
	}

	if books == nil {
		books = []catalog.Release{}
	}

	response.Raw(w, http.StatusOK, newReleasesEnvelope{
		Success: true,
		Books:   books,
	}, s.logger)
}
