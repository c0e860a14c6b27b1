package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/nookapp/nook-server/internal/domain"
	"github.com/nookapp/nook-server/internal/store"
)

// recordingEmitter captures ProfileChanged calls for assertions.
type recordingEmitter struct {
	userIDs   []string
	snapshots []*domain.Profile
}

func (r *recordingEmitter) ProfileChanged(userID string, p *domain.Profile) {
	r.userIDs = append(r.userIDs, userID)
	r.snapshots = append(r.snapshots, p)
}

func TestCreateAndGetProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	p := domain.NewProfile("user-1", "alice@example.com", "Alice")
	p.Bio = "Reads a lot."
	p.FavoriteGenres = []string{"fantasy", "mystery"}
	p.SetBannerColor("#aabbcc")

	if err := s.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	got, err := s.GetProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}

	if got.UserID != "user-1" {
		t.Errorf("UserID: got %q", got.UserID)
	}
	if got.DisplayName != "Alice" {
		t.Errorf("DisplayName: got %q", got.DisplayName)
	}
	if got.Bio != "Reads a lot." {
		t.Errorf("Bio: got %q", got.Bio)
	}
	if len(got.FavoriteGenres) != 2 || got.FavoriteGenres[0] != "fantasy" {
		t.Errorf("FavoriteGenres: got %v", got.FavoriteGenres)
	}
	if got.Subscription != domain.TierFree {
		t.Errorf("Subscription: got %q", got.Subscription)
	}
	if got.BannerColor != "#aabbcc" || got.BannerImage != "" {
		t.Errorf("banner: got image=%q color=%q", got.BannerImage, got.BannerColor)
	}
}

func TestCreateProfile_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateProfile(ctx, domain.NewProfile("user-1", "alice@example.com", "")); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	// Second provisioning attempt for the same user collapses to a conflict.
	err := s.CreateProfile(ctx, domain.NewProfile("user-1", "alice@example.com", ""))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetProfile_NotProvisioned(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProfile(context.Background(), "user-unprovisioned")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfile_BannerSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	p := domain.NewProfile("user-1", "alice@example.com", "")
	p.SetBannerColor("#112233")
	if err := s.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	// Uploading a banner image clears the color.
	p.SetBannerImage("/media/users/user-1/banner.jpg")
	p.Touch()
	if err := s.UpdateProfile(ctx, p); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	got, err := s.GetProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.BannerImage != "/media/users/user-1/banner.jpg" {
		t.Errorf("BannerImage: got %q", got.BannerImage)
	}
	if got.BannerColor != "" {
		t.Errorf("BannerColor: expected cleared, got %q", got.BannerColor)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateProfile(context.Background(), domain.NewProfile("user-nope", "x@example.com", ""))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileWrites_NotifyEmitter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &recordingEmitter{}
	s.SetProfileEmitter(rec)

	if err := s.CreateUser(ctx, makeTestUser("user-1", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	p := domain.NewProfile("user-1", "alice@example.com", "")
	if err := s.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	p.Bio = "updated"
	if err := s.UpdateProfile(ctx, p); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if len(rec.userIDs) != 2 {
		t.Fatalf("expected 2 emissions, got %d", len(rec.userIDs))
	}
	if rec.userIDs[0] != "user-1" || rec.userIDs[1] != "user-1" {
		t.Errorf("unexpected user IDs: %v", rec.userIDs)
	}
	if rec.snapshots[1].Bio != "updated" {
		t.Errorf("second snapshot Bio: got %q", rec.snapshots[1].Bio)
	}
}
