package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nookapp/nook-server/internal/http/response"
	"github.com/nookapp/nook-server/internal/media/images"
)

// handleServeImage serves a stored profile image. Public by design:
// the URLs live in profiles other users can see.
func (s *Server) handleServeImage(w http.ResponseWriter, r *http.Request) {
	kind := images.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		response.NotFound(w, "Unknown image kind", s.logger)
		return
	}

	data, ext, err := s.profileService.GetImage(chi.URLParam(r, "userID"), kind)
	if err != nil {
		response.NotFound(w, "Image not found", s.logger)
		return
	}

	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentTypeForExt(ext))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentTypeForExt(ext string) string {
	switch ext {
	case "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	}
	return "application/octet-stream"
}
