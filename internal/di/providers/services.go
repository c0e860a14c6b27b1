package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/nookapp/nook-server/internal/auth"
	"github.com/nookapp/nook-server/internal/catalog"
	"github.com/nookapp/nook-server/internal/config"
	"github.com/nookapp/nook-server/internal/logger"
	"github.com/nookapp/nook-server/internal/media/images"
	"github.com/nookapp/nook-server/internal/ratelimit"
	"github.com/nookapp/nook-server/internal/service"
	"github.com/nookapp/nook-server/internal/session"
)

// Login and resend-verification limits are per key (lowercased email),
// not global.
const (
	loginRatePerSecond  = 0.2 // ~12 attempts a minute
	loginBurst          = 5
	resendRatePerSecond = 1.0 / 60 // one a minute
	resendBurst         = 2
)

// RateLimiters holds the keyed limiters the auth service depends on.
type RateLimiters struct {
	Login  *ratelimit.KeyedRateLimiter
	Resend *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (r *RateLimiters) Shutdown() error {
	r.Login.Stop()
	r.Resend.Stop()
	return nil
}

// ProvideRateLimiters provides the auth rate limiters.
func ProvideRateLimiters(i do.Injector) (*RateLimiters, error) {
	return &RateLimiters{
		Login:  ratelimit.New(loginRatePerSecond, loginBurst),
		Resend: ratelimit.New(resendRatePerSecond, resendBurst),
	}, nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	limiters := do.MustInvoke[*RateLimiters](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, limiters.Login, limiters.Resend, log.Logger), nil
}

// ProvideProvisioner provides the profile provisioner.
func ProvideProvisioner(i do.Injector) (*session.Provisioner, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return session.NewProvisioner(storeHandle.Store, log.Logger), nil
}

// ProvideProfileService provides the profile service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	provisioner := do.MustInvoke[*session.Provisioner](i)
	processor := do.MustInvoke[*images.Processor](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Store, provisioner, processor, log.Logger), nil
}

// ProvideLibraryService provides the shelf service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(storeHandle.Store, indexHandle.ShelfIndex, log.Logger), nil
}

// ProvideSessionService provides the session evaluation service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, log.Logger), nil
}

// ProvideCatalogClient provides the Google Books client.
func ProvideCatalogClient(i do.Injector) (*catalog.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return catalog.NewClient(catalog.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerMinute: cfg.Catalog.RequestsPerMinute,
	}, log.Logger), nil
}

// defaultJanitorInterval is how often expired refresh sessions are
// swept from the store.
const defaultJanitorInterval = time.Hour
