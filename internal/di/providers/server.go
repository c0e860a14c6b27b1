package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/nookapp/nook-server/internal/api"
	"github.com/nookapp/nook-server/internal/catalog"
	"github.com/nookapp/nook-server/internal/config"
	"github.com/nookapp/nook-server/internal/logger"
	"github.com/nookapp/nook-server/internal/service"
	"github.com/nookapp/nook-server/internal/session"
	"github.com/nookapp/nook-server/internal/sse"
	"github.com/nookapp/nook-server/internal/store"
)

// ProvideStreamHandler provides the session SSE handler. Each
// connection gets its own stream composed from fresh identity and
// profile feeds.
func ProvideStreamHandler(i do.Injector) (*sse.Handler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	hub := do.MustInvoke[*store.ProfileHub](i)
	provisioner := do.MustInvoke[*session.Provisioner](i)
	authService := do.MustInvoke[*service.AuthService](i)
	log := do.MustInvoke[*logger.Logger](i)

	newStream := func(userID, route string) *sse.Stream {
		return sse.NewStream(sse.StreamOptions{
			Route:        route,
			Identity:     service.NewIdentityConn(storeHandle.Store, userID, log.Logger),
			Profiles:     service.NewProfileFeed(storeHandle.Store, hub, log.Logger),
			Provisioner:  provisioner,
			MinDwell:     cfg.Session.MinDwell,
			PollInterval: cfg.Session.VerifyPollInterval,
			Logger:       log.Logger,
		})
	}

	// The stream works for signed-out clients, so a bad token is just
	// an anonymous connection.
	verifyUser := func(r *http.Request) string {
		authHeader := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
			return ""
		}
		user, _, err := authService.VerifyAccessToken(r.Context(), authHeader[len(prefix):])
		if err != nil {
			return ""
		}
		return user.ID
	}

	return sse.NewHandler(newStream, verifyUser, log.Logger), nil
}

// SessionJanitor runs expired-session cleanup in the background.
type SessionJanitor struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionJanitor) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionJanitor starts the expired-session sweeper.
func ProvideSessionJanitor(i do.Injector) (*SessionJanitor, error) {
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	go sessionService.RunJanitor(ctx, defaultJanitorInterval)

	log.Info("Session janitor started", "interval", defaultJanitorInterval)

	return &SessionJanitor{cancel: cancel}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	authService := do.MustInvoke[*service.AuthService](i)
	profileService := do.MustInvoke[*service.ProfileService](i)
	libraryService := do.MustInvoke[*service.LibraryService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	catalogClient := do.MustInvoke[*catalog.Client](i)
	streamHandler := do.MustInvoke[*sse.Handler](i)

	apiServer := api.NewServer(
		authService,
		profileService,
		libraryService,
		sessionService,
		catalogClient,
		streamHandler,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
