// Package api provides the HTTP API server and handlers for the Nook application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nookapp/nook-server/internal/catalog"
	"github.com/nookapp/nook-server/internal/http/response"
	"github.com/nookapp/nook-server/internal/service"
	"github.com/nookapp/nook-server/internal/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService    *service.AuthService
	profileService *service.ProfileService
	libraryService *service.LibraryService
	sessionService *service.SessionService
	catalog        *catalog.Client
	streamHandler  *sse.Handler
	router         *chi.Mux
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	authService *service.AuthService,
	profileService *service.ProfileService,
	libraryService *service.LibraryService,
	sessionService *service.SessionService,
	catalogClient *catalog.Client,
	streamHandler *sse.Handler,
	logger *slog.Logger,
) *Server {
	s := &Server{
		authService:    authService,
		profileService: profileService,
		libraryService: libraryService,
		sessionService: sessionService,
		catalog:        catalogClient,
		streamHandler:  streamHandler,
		router:         chi.NewRouter(),
		logger:         logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public).
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
			r.Post("/verify", s.handleVerify)
			r.Post("/resend-verification", s.handleResendVerification)
			r.With(s.requireAuth).Get("/check-verification", s.handleCheckVerification)
		})

		// Profile (require auth).
		r.Route("/profile", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleGetProfile)
			r.Patch("/", s.handleUpdateProfile)
			r.Post("/image", s.handleUploadImage)
		})

		// Library shelf (require auth).
		r.Route("/library", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleAddEntry)
			r.Get("/", s.handleListEntries)
			r.Get("/search", s.handleSearchShelf)
			r.Patch("/{id}", s.handleUpdateEntry)
			r.Delete("/{id}", s.handleRemoveEntry)
		})

		// Session state (anonymous allowed; tokens identify the caller).
		r.Route("/session", func(r chi.Router) {
			r.Use(s.optionalAuth)
			r.Get("/", s.handleGetSession)
			r.Get("/stream", s.streamHandler.ServeHTTP)
		})
	})

	// Public book catalog pass-through. Paths and envelope shapes are a
	// wire contract with the front end; don't touch them.
	s.router.Route("/api/books", func(r chi.Router) {
		r.Get("/search", s.handleBookSearch)
		r.Get("/recommendations", s.handleBookRecommendations)
		r.Get("/new-releases", s.handleBookNewReleases)
	})

	// Stored profile images.
	s.router.Get("/media/users/{userID}/{kind}", s.handleServeImage)
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
