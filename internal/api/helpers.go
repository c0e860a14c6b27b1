package api

import (
	"encoding/json/v2"
	"io"
	"net/http"

	"github.com/nookapp/nook-server/internal/http/response"
)

// maxBodySize caps JSON request bodies. Image uploads have their own
// limit in the handler.
const maxBodySize = 1 << 20 // 1 MiB

// decodeJSON reads and decodes a JSON request body into dst. On
// failure it writes a 400 response and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		response.BadRequest(w, "Failed to read request body", s.logger)
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		response.BadRequest(w, "Invalid JSON in request body", s.logger)
		return false
	}

	return true
}
