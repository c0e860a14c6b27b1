package store

import (
	"sync"

	"github.com/nookapp/nook-server/internal/domain"
)

// ProfileHub fans profile snapshots out to per-user subscribers. The
// store emits into the hub after every successful profile write; live
// session streams subscribe for the users they're watching.
//
// Callbacks run synchronously while the hub lock is held, so snapshots
// arrive in write order. Subscribers must not block and must not call
// back into the hub from their callback.
type ProfileHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(*domain.Profile)
}

// NewProfileHub creates an empty hub.
func NewProfileHub() *ProfileHub {
	return &ProfileHub{
		subs: make(map[string]map[int]func(*domain.Profile)),
	}
}

// Subscribe registers fn to receive profile snapshots for userID.
// A nil snapshot means the profile no longer exists. The returned
// cancel func is idempotent.
func (h *ProfileHub) Subscribe(userID string, fn func(*domain.Profile)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]func(*domain.Profile))
	}
	h.subs[userID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
		})
	}
}

// ProfileChanged pushes a snapshot to every subscriber for userID.
// Implements ProfileEmitter.
func (h *ProfileHub) ProfileChanged(userID string, profile *domain.Profile) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, fn := range h.subs[userID] {
		fn(profile)
	}
}

// SubscriberCount returns the number of active subscriptions for userID.
func (h *ProfileHub) SubscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
