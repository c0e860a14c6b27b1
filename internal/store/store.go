// Package store defines the persistence interfaces the Nook server is
// built against, plus the profile change hub used to push snapshots to
// live session streams. The SQLite implementation lives in store/sqlite.
package store

import (
	"context"

	"github.com/nookapp/nook-server/internal/domain"
)

// UserStore persists identity records.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
}

// ProfileStore persists provisioned profiles.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, profile *domain.Profile) error
}

// SessionStore persists refresh token sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// LibraryStore persists shelf entries.
type LibraryStore interface {
	CreateLibraryEntry(ctx context.Context, entry *domain.LibraryEntry) error
	GetLibraryEntry(ctx context.Context, id string) (*domain.LibraryEntry, error)
	GetLibraryEntryByBook(ctx context.Context, userID, bookID string) (*domain.LibraryEntry, error)
	ListLibraryEntries(ctx context.Context, userID string) ([]*domain.LibraryEntry, error)
	UpdateLibraryEntry(ctx context.Context, entry *domain.LibraryEntry) error
	DeleteLibraryEntry(ctx context.Context, id string) error
}

// Store is the full persistence surface the services depend on.
type Store interface {
	UserStore
	ProfileStore
	SessionStore
	LibraryStore
	Close() error
}

// ProfileEmitter receives profile snapshots after successful writes.
// The store calls it so live session streams see changes without polling.
type ProfileEmitter interface {
	ProfileChanged(userID string, profile *domain.Profile)
}

// NoopProfileEmitter is a no-op implementation for testing.
type NoopProfileEmitter struct{}

// ProfileChanged implements ProfileEmitter as a no-op.
func (NoopProfileEmitter) ProfileChanged(string, *domain.Profile) {}
