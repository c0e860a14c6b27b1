package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nookapp/nook-server/internal/auth"
	"github.com/nookapp/nook-server/internal/domain"
	"github.com/nookapp/nook-server/internal/ratelimit"
	"github.com/nookapp/nook-server/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// memStore is an in-memory store.Store for service tests.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User // by ID
	profiles map[string]*domain.Profile
	sessions map[string]*domain.Session
	entries  map[string]*domain.LibraryEntry
	emitter  store.ProfileEmitter
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*domain.User),
		profiles: make(map[string]*domain.Profile),
		sessions: make(map[string]*domain.Session),
		entries:  make(map[string]*domain.LibraryEntry),
		emitter:  store.NoopProfileEmitter{},
	}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrAlreadyExists
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpdateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) CreateProfile(_ context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	if _, ok := m.profiles[profile.UserID]; ok {
		m.mu.Unlock()
		return store.ErrAlreadyExists
	}
	cp := *profile
	m.profiles[profile.UserID] = &cp
	m.mu.Unlock()
	m.emitter.ProfileChanged(profile.UserID, profile)
	return nil
}

func (m *memStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateProfile(_ context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	if _, ok := m.profiles[profile.UserID]; !ok {
		m.mu.Unlock()
		return store.ErrNotFound
	}
	cp := *profile
	m.profiles[profile.UserID] = &cp
	m.mu.Unlock()
	m.emitter.ProfileChanged(profile.UserID, profile)
	return nil
}

func (m *memStore) CreateSession(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *memStore) GetSessionByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.RefreshTokenHash == tokenHash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) TouchSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	s.LastSeenAt = time.Now()
	return nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memStore) DeleteUserSessions(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateLibraryEntry(_ context.Context, entry *domain.LibraryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.UserID == entry.UserID && e.BookID == entry.BookID {
			return store.ErrAlreadyExists
		}
	}
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *memStore) GetLibraryEntry(_ context.Context, id string) (*domain.LibraryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) GetLibraryEntryByBook(_ context.Context, userID, bookID string) (*domain.LibraryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.UserID == userID && e.BookID == bookID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListLibraryEntries(_ context.Context, userID string) ([]*domain.LibraryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.LibraryEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (m *memStore) UpdateLibraryEntry(_ context.Context, entry *domain.LibraryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *memStore) DeleteLibraryEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

var _ store.Store = (*memStore)(nil)

// newTestAuthService wires an AuthService with generous rate limits.
func newTestAuthService(t *testing.T, st store.Store) *AuthService {
	t.Helper()

	tokens, err := auth.NewTokenService(testKeyHex(), 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	loginLimiter := ratelimit.New(1000, 1000)
	resendLimiter := ratelimit.New(1000, 1000)
	t.Cleanup(func() {
		loginLimiter.Stop()
		resendLimiter.Stop()
	})

	return NewAuthService(st, tokens, loginLimiter, resendLimiter, testLogger())
}

func testKeyHex() string {
	const hexByte = "ab"
	key := ""
	for range 32 {
		key += hexByte
	}
	return key
}

// registerVerifiedUser registers and verifies a user, returning its ID.
func registerVerifiedUser(t *testing.T, svc *AuthService, st *memStore, email, password string) string {
	t.Helper()

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)

	st.mu.Lock()
	user := st.users[resp.UserID]
	user.MarkVerified()
	st.mu.Unlock()

	return resp.UserID
}
