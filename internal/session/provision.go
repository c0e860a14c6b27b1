package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nookapp/nook-server/internal/domain"
	domainerrors "github.com/nookapp/nook-server/internal/errors"
	"github.com/nookapp/nook-server/internal/store"
)

// Provisioner creates the one profile a verified user gets. It keeps a
// per-user in-flight set so a second trigger while a create is pending
// is a no-op, and it treats a lost create race as success.
type Provisioner struct {
	profiles ProfileCreator
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// NewProvisioner creates a provisioner writing through the given creator.
func NewProvisioner(profiles ProfileCreator, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		profiles: profiles,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// EnsureProfile creates a profile for the identity with provisioning
// defaults. displayName may be empty; the email local part is used
// then. Success is observed through the profile watcher's next push,
// not through a return value.
//
// Returns nil without acting when a provisioning attempt for this user
// is already in flight. Never called for unverified users by the
// guard; if it is, it refuses.
func (p *Provisioner) EnsureProfile(ctx context.Context, identity *domain.Identity, displayName string) error {
	if identity == nil {
		return domainerrors.Validation("no identity to provision")
	}
	if !identity.EmailVerified {
		return domainerrors.EmailNotVerified("cannot provision a profile before email verification")
	}

	// Check-and-set must be atomic: two triggers racing here must
	// collapse to one write.
	p.mu.Lock()
	if p.inflight[identity.ID] {
		p.mu.Unlock()
		return nil
	}
	p.inflight[identity.ID] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inflight, identity.ID)
		p.mu.Unlock()
	}()

	profile := domain.NewProfile(identity.ID, identity.Email, displayName)

	err := p.profiles.CreateProfile(ctx, profile)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Someone else provisioned first. The watcher push carries
		// their write; nothing more to do.
		return nil
	}
	if err != nil {
		if p.logger != nil {
			p.logger.Error("profile provisioning failed", "user_id", identity.ID, "error", err)
		}
		// Recoverable; no automatic retry. The guard routes the user
		// back to an entry point.
		return domainerrors.ProfileWrite("failed to create profile").WithCause(err)
	}

	if p.logger != nil {
		p.logger.Info("profile provisioned", "user_id", identity.ID)
	}
	return nil
}
