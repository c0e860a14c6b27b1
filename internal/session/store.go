package session

import (
	"log/slog"
	"sync"

	"github.com/nookapp/nook-server/internal/domain"
)

// Store is the session lifecycle controller. It subscribes to an
// IdentitySource and, per authenticated user, a ProfileWatcher,
// recomputes the resolver state on every push, and notifies its own
// subscribers on change.
//
// A Store is explicitly constructed and torn down (Close), one per
// consumer; there is no ambient singleton. Callbacks may arrive from
// any goroutine; a mutex serializes event handling.
type Store struct {
	ids      IdentitySource
	profiles ProfileWatcher
	logger   *slog.Logger

	mu            sync.Mutex
	snap          Snapshot
	state         State
	gen           int // bumped on every user switch; stale profile pushes are dropped
	cancelAuth    func()
	cancelProfile func()
	closed        bool
	subs          map[int]chan State
	nextSub       int
}

// NewStore creates a controller in the Initializing state. Call Start
// to begin receiving signals.
func NewStore(ids IdentitySource, profiles ProfileWatcher, logger *slog.Logger) *Store {
	return &Store{
		ids:      ids,
		profiles: profiles,
		logger:   logger,
		snap:     Snapshot{LoadingAuth: true},
		state:    StateInitializing,
		subs:     make(map[int]chan State),
	}
}

// Start subscribes to the identity source. The source's synchronous
// initial push clears the auth loading flag.
func (s *Store) Start() {
	s.cancelAuth = s.ids.Subscribe(s.onIdentity)
}

// Close tears down all subscriptions. Subscriber channels are closed;
// further pushes are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancelAuth := s.cancelAuth
	cancelProfile := s.cancelProfile
	s.cancelAuth = nil
	s.cancelProfile = nil
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	// Cancel outside our lock: the watcher invokes callbacks under its
	// own lock and those callbacks take ours.
	if cancelAuth != nil {
		cancelAuth()
	}
	if cancelProfile != nil {
		cancelProfile()
	}
}

// State returns the current resolver state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe returns a channel receiving every state change. Slow
// consumers drop intermediate states rather than blocking the
// controller. The cancel func is idempotent.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 8)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				close(sub)
				delete(s.subs, id)
			}
		})
	}
}

// onIdentity handles a push from the identity source.
func (s *Store) onIdentity(id *domain.Identity) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	prev := s.snap.AuthUser
	sameUser := prev != nil && id != nil && prev.ID == id.ID

	s.snap.LoadingAuth = false
	s.snap.AuthUser = id

	var (
		oldCancel func()
		watchUser string
		gen       int
	)
	if !sameUser {
		// User switch: the old subscription must be gone before the new
		// one exists, so a stale push for user A can never land on B's
		// snapshot. The generation counter catches pushes already in
		// flight.
		oldCancel = s.cancelProfile
		s.cancelProfile = nil
		s.snap.Profile = nil
		s.snap.LoadingProfile = false
		s.gen++
		gen = s.gen

		if id != nil {
			s.snap.LoadingProfile = true
			watchUser = id.ID
		}
	}
	s.recomputeLocked()
	s.mu.Unlock()

	if oldCancel != nil {
		oldCancel()
	}
	if watchUser != "" {
		cancel := s.profiles.Subscribe(watchUser, func(p *domain.Profile) {
			s.onProfile(gen, p)
		})

		s.mu.Lock()
		if s.closed || gen != s.gen {
			s.mu.Unlock()
			cancel()
			return
		}
		s.cancelProfile = cancel
		s.mu.Unlock()
	}
}

// onProfile handles a push from the profile watcher.
func (s *Store) onProfile(gen int, p *domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}

	s.snap.LoadingProfile = false
	s.snap.Profile = p
	s.recomputeLocked()
}

// recomputeLocked re-resolves the state and notifies subscribers on
// change. Caller holds s.mu.
func (s *Store) recomputeLocked() {
	next := Resolve(s.snap)
	if next == s.state {
		return
	}
	s.state = next

	if s.logger != nil {
		s.logger.Debug("session state changed", "state", string(next))
	}

	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
		}
	}
}
