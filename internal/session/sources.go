package session

import (
	"context"

	"github.com/nookapp/nook-server/internal/domain"
)

// IdentitySource is the capability the lifecycle controller depends on
// for auth signals. Subscribe must invoke fn synchronously with the
// current identity (nil when signed out) and again on every change;
// the returned cancel func stops further callbacks and is idempotent.
type IdentitySource interface {
	Subscribe(fn func(*domain.Identity)) (cancel func())
	RefreshAndCheckVerified(ctx context.Context) (bool, error)
}

// ProfileWatcher is the capability for profile signals. Subscribe must
// invoke fn synchronously with the current profile (nil when not
// provisioned) and again on every write, in write order.
type ProfileWatcher interface {
	Subscribe(userID string, fn func(*domain.Profile)) (cancel func())
}

// ProfileCreator is the single write capability the provisioner needs.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, profile *domain.Profile) error
}
