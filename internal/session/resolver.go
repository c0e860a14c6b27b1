// Package session implements the session lifecycle core: the state
// resolver, the lifecycle controller that feeds it, the navigation
// guard, profile provisioning, and the timers (dwell gate, verification
// poller) that pace the signup flow.
package session

import "github.com/nookapp/nook-server/internal/domain"

// State is the named session phase derived from raw auth and profile
// signals.
type State string

// Session states, from least to most established.
const (
	StateInitializing           State = "initializing"
	StateUnauthenticated        State = "unauthenticated"
	StatePendingVerification    State = "pending_verification"
	StatePendingProfileCreation State = "pending_profile_creation"
	StateReady                  State = "ready"
)

// Snapshot is the resolver input: the latest view of the auth user,
// their profile, and the loading flags. Derived, never persisted.
type Snapshot struct {
	LoadingAuth    bool
	AuthUser       *domain.Identity
	LoadingProfile bool
	Profile        *domain.Profile
}

// Resolve maps a snapshot to exactly one state. Pure: no side effects,
// no I/O, total over all inputs. Rules are evaluated in priority
// order; first match wins.
func Resolve(snap Snapshot) State {
	switch {
	case snap.LoadingAuth:
		return StateInitializing
	case snap.AuthUser == nil:
		return StateUnauthenticated
	case !snap.AuthUser.EmailVerified:
		return StatePendingVerification
	case snap.LoadingProfile:
		return StateInitializing
	case snap.Profile == nil:
		return StatePendingProfileCreation
	default:
		return StateReady
	}
}
