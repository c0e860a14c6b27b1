package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nookapp/nook-server/internal/store"
)

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser("user-1", "Alice@Example.com")
	user.VerificationTokenHash = "abc123hash"
	user.VerificationSentAt = time.Now()

	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}

	if got.ID != user.ID {
		t.Errorf("ID: got %q, want %q", got.ID, user.ID)
	}
	if got.Email != user.Email {
		t.Errorf("Email: got %q, want %q", got.Email, user.Email)
	}
	if got.PasswordHash != user.PasswordHash {
		t.Errorf("PasswordHash: got %q, want %q", got.PasswordHash, user.PasswordHash)
	}
	if got.DisplayName != "Test Reader" {
		t.Errorf("DisplayName: got %q, want %q", got.DisplayName, "Test Reader")
	}
	if got.EmailVerified {
		t.Error("EmailVerified: expected false")
	}
	if got.VerificationTokenHash != "abc123hash" {
		t.Errorf("VerificationTokenHash: got %q", got.VerificationTokenHash)
	}

	// Timestamps should round-trip through RFC3339Nano.
	if got.CreatedAt.Unix() != user.CreatedAt.Unix() {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, user.CreatedAt)
	}
	if got.VerificationSentAt.Unix() != user.VerificationSentAt.Unix() {
		t.Errorf("VerificationSentAt: got %v, want %v", got.VerificationSentAt, user.VerificationSentAt)
	}
	if !got.LastLoginAt.IsZero() {
		t.Errorf("LastLoginAt: expected zero, got %v", got.LastLoginAt)
	}
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "Alice@Example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	for _, email := range []string{"alice@example.com", "ALICE@EXAMPLE.COM", " Alice@Example.com "} {
		got, err := s.GetUserByEmail(ctx, email)
		if err != nil {
			t.Fatalf("GetUserByEmail(%q): %v", email, err)
		}
		if got.ID != "user-1" {
			t.Errorf("GetUserByEmail(%q): got %q", email, got.ID)
		}
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Same email, different case: still a conflict.
	err := s.CreateUser(ctx, makeTestUser("user-2", "ALICE@example.com"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "user-nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = s.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser("user-1", "alice@example.com")
	user.VerificationTokenHash = "pending"
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user.MarkVerified()
	user.LastLoginAt = time.Now()
	if err := s.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !got.EmailVerified {
		t.Error("EmailVerified: expected true after MarkVerified")
	}
	if got.VerificationTokenHash != "" {
		t.Errorf("VerificationTokenHash: expected cleared, got %q", got.VerificationTokenHash)
	}
	if got.LastLoginAt.IsZero() {
		t.Error("LastLoginAt: expected set")
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateUser(context.Background(), makeTestUser("user-nope", "x@example.com"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
