// Package di provides dependency injection configuration for the Nook server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/nookapp/nook-server/internal/auth"
	"github.com/nookapp/nook-server/internal/catalog"
	"github.com/nookapp/nook-server/internal/config"
	"github.com/nookapp/nook-server/internal/di/providers"
	"github.com/nookapp/nook-server/internal/logger"
	"github.com/nookapp/nook-server/internal/media/images"
	"github.com/nookapp/nook-server/internal/service"
	"github.com/nookapp/nook-server/internal/session"
	"github.com/nookapp/nook-server/internal/sse"
	"github.com/nookapp/nook-server/internal/store"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)

	// Storage layer
	do.Provide(injector, providers.ProvideProfileHub)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideImageProcessor)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Business services
	do.Provide(injector, providers.ProvideRateLimiters)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideProvisioner)
	do.Provide(injector, providers.ProvideProfileService)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideCatalogClient)

	// Session streaming and background work
	do.Provide(injector, providers.ProvideStreamHandler)
	do.Provide(injector, providers.ProvideSessionJanitor)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once everything is
// running. This triggers lazy initialization in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	_ = do.MustInvoke[*store.ProfileHub](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*images.Storage](injector)
	_ = do.MustInvoke[*images.Processor](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	_ = do.MustInvoke[*providers.RateLimiters](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*session.Provisioner](injector)
	_ = do.MustInvoke[*service.ProfileService](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*catalog.Client](injector)

	_ = do.MustInvoke[*sse.Handler](injector)
	_ = do.MustInvoke[*providers.SessionJanitor](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
