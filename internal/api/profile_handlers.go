package api

import (
	"io"
	"net/http"

	"github.com/nookapp/nook-server/internal/http/response"
	"github.com/nookapp/nook-server/internal/media/images"
	"github.com/nookapp/nook-server/internal/service"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profileService.Get(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, profile, s.logger)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	profile, err := s.profileService.Update(r.Context(), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, profile, s.logger)
}

// handleUploadImage accepts a multipart upload for one image slot. The
// response carries the served URL and blurhash; the client PATCHes the
// profile with the URL itself.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	kind, ok := imageKind(r.URL.Query().Get("kind"))
	if !ok {
		response.BadRequest(w, "kind must be profile or banner", s.logger)
		return
	}

	if err := r.ParseMultipartForm(images.MaxUploadSize); err != nil {
		response.BadRequest(w, "Invalid multipart form", s.logger)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "Missing image file", s.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, images.MaxUploadSize+1))
	if err != nil {
		response.BadRequest(w, "Failed to read image data", s.logger)
		return
	}

	processed, err := s.profileService.UploadImage(r.Context(), getUserID(r.Context()), kind, data)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, processed, s.logger)
}

// imageKind maps the public kind parameter onto a storage slot.
// "profile" is the wire name for the avatar slot.
func imageKind(param string) (images.Kind, bool) {
	switch param {
	case "profile", "avatar":
		return images.KindAvatar, true
	case "banner":
		return images.KindBanner, true
	}
	return "", false
}
