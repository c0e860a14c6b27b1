package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nookapp/nook-server/internal/domain"
	domainerrors "github.com/nookapp/nook-server/internal/errors"
	"github.com/nookapp/nook-server/internal/session"
	"github.com/nookapp/nook-server/internal/store"
)

// IdentityConn implements session.IdentitySource for one connection.
// The identity is pinned at connection time from the access token;
// RefreshAndCheckVerified re-reads the user so a verification completed
// in another tab propagates into the state machine.
type IdentityConn struct {
	users  store.UserStore
	userID string // empty for anonymous connections
	logger *slog.Logger

	mu         sync.Mutex
	subscriber func(*domain.Identity)
	last       *domain.Identity
}

// NewIdentityConn creates an identity source for a connection.
// userID is empty when the caller presented no (valid) token.
func NewIdentityConn(users store.UserStore, userID string, logger *slog.Logger) *IdentityConn {
	return &IdentityConn{
		users:  users,
		userID: userID,
		logger: logger,
	}
}

// Subscribe pushes the current identity synchronously, then on every
// refresh that changes it.
func (c *IdentityConn) Subscribe(fn func(*domain.Identity)) (cancel func()) {
	current := c.load(context.Background())

	c.mu.Lock()
	c.subscriber = fn
	c.last = current
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.subscriber = nil
			c.mu.Unlock()
		})
	}
}

// RefreshAndCheckVerified re-reads the user and reports verification.
// A change in verification status is pushed to the subscriber so the
// controller re-resolves.
func (c *IdentityConn) RefreshAndCheckVerified(ctx context.Context) (bool, error) {
	if c.userID == "" {
		return false, nil
	}

	user, err := c.users.GetUser(ctx, c.userID)
	if err != nil {
		return false, fmt.Errorf("refresh identity: %w", err)
	}
	identity := user.Identity()

	c.mu.Lock()
	changed := c.last == nil || c.last.EmailVerified != identity.EmailVerified
	c.last = identity
	fn := c.subscriber
	c.mu.Unlock()

	if changed && fn != nil {
		fn(identity)
	}

	return identity.EmailVerified, nil
}

// load reads the pinned user, or nil for anonymous/missing users.
func (c *IdentityConn) load(ctx context.Context) *domain.Identity {
	if c.userID == "" {
		return nil
	}
	user, err := c.users.GetUser(ctx, c.userID)
	if err != nil {
		if !domainerrors.Is(err, store.ErrNotFound) {
			c.logger.Warn("failed to load identity", "user_id", c.userID, "error", err)
		}
		return nil
	}
	return user.Identity()
}

// ProfileFeed implements session.ProfileWatcher on top of the store
// and the in-process profile hub.
type ProfileFeed struct {
	profiles store.ProfileStore
	hub      *store.ProfileHub
	logger   *slog.Logger
}

// NewProfileFeed creates a profile watcher backed by the store.
func NewProfileFeed(profiles store.ProfileStore, hub *store.ProfileHub, logger *slog.Logger) *ProfileFeed {
	return &ProfileFeed{
		profiles: profiles,
		hub:      hub,
		logger:   logger,
	}
}

// Subscribe registers with the hub first, then reads and pushes the
// current profile. Hub events arriving during the initial read are
// held back until the snapshot has been delivered, so the subscriber
// always sees snapshot-then-writes in order and a provisioning write
// in the gap is never lost.
func (f *ProfileFeed) Subscribe(userID string, fn func(*domain.Profile)) (cancel func()) {
	var mu sync.Mutex
	initialized := false
	var pending *domain.Profile
	hasPending := false

	cancel = f.hub.Subscribe(userID, func(p *domain.Profile) {
		mu.Lock()
		if !initialized {
			pending, hasPending = p, true
			mu.Unlock()
			return
		}
		mu.Unlock()
		fn(p)
	})

	profile, err := f.profiles.GetProfile(context.Background(), userID)
	if err != nil {
		if !domainerrors.Is(err, store.ErrNotFound) {
			f.logger.Warn("failed to read profile snapshot", "user_id", userID, "error", err)
		}
		profile = nil // Not provisioned
	}

	mu.Lock()
	initialized = true
	deferred, replay := pending, hasPending
	mu.Unlock()

	fn(profile)
	if replay {
		fn(deferred)
	}

	return cancel
}

// SessionView is the one-shot answer to "where should this client be".
type SessionView struct {
	State      session.State    `json:"state"`
	Decision   session.Decision `json:"decision"`
	RedirectTo string           `json:"redirect_to,omitempty"`
}

// SessionService answers point-in-time session queries and owns the
// background session janitor.
type SessionService struct {
	store  store.Store
	logger *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(st store.Store, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:  st,
		logger: logger,
	}
}

// Evaluate resolves the session state for a caller and decides what
// the given route should do. One-shot queries have no loading phase
// and no dwell timer, so both are resolved as already settled.
func (s *SessionService) Evaluate(ctx context.Context, userID, route string) (*SessionView, error) {
	snap := session.Snapshot{}

	if userID != "" {
		user, err := s.store.GetUser(ctx, userID)
		if err != nil && !domainerrors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if err == nil {
			snap.AuthUser = user.Identity()

			profile, perr := s.store.GetProfile(ctx, userID)
			if perr != nil && !domainerrors.Is(perr, store.ErrNotFound) {
				return nil, fmt.Errorf("get profile: %w", perr)
			}
			snap.Profile = profile
		}
	}

	state := session.Resolve(snap)
	decision := session.NewGuard().Decide(session.ClassifyRoute(route), state, true)

	view := &SessionView{
		State:    state,
		Decision: decision,
	}
	if decision.Action == session.ActionRedirect {
		view.RedirectTo = decision.Target
	}
	return view, nil
}

// RunJanitor deletes expired sessions on a fixed interval until the
// context is canceled.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.DeleteExpiredSessions(ctx)
			if err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
