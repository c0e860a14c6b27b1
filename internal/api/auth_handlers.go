package api

import (
	"net"
	"net/http"

	"github.com/nookapp/nook-server/internal/http/response"
	"github.com/nookapp/nook-server/internal/service"
)

// verifyRequest is the request body for consuming a verification token.
type verifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// resendRequest is the request body for re-sending a verification email.
type resendRequest struct {
	Email string `json:"email"`
}

// tokenRequest is the request body for refresh and logout.
type tokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, resp, s.logger)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	req.IPAddress = clientIP(r)
	req.UserAgent = r.UserAgent()

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		response.BadRequest(w, "refresh_token is required", s.logger)
		return
	}

	resp, err := s.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if err := s.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{"message": "Logged out successfully"}, s.logger)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Token == "" {
		response.BadRequest(w, "email and token are required", s.logger)
		return
	}

	if err := s.authService.Verify(r.Context(), req.Email, req.Token); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{"message": "Email verified"}, s.logger)
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		response.BadRequest(w, "email is required", s.logger)
		return
	}

	if err := s.authService.ResendVerification(r.Context(), req.Email); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	// Identical response whether or not the address exists.
	response.Success(w, map[string]string{"message": "If the address exists, a verification email was sent"}, s.logger)
}

func (s *Server) handleCheckVerification(w http.ResponseWriter, r *http.Request) {
	verified, err := s.authService.CheckVerification(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]bool{"verified": verified}, s.logger)
}

// clientIP returns the caller's IP. The RealIP middleware has already
// folded X-Forwarded-For / X-Real-IP into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
