package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nookapp/nook-server/internal/color"
)

func TestNewProfile_Defaults(t *testing.T) {
	p := NewProfile("user-1", "ana@example.com", "")

	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, "ana", p.DisplayName, "display name derives from email local part")
	assert.Equal(t, TierFree, p.Subscription)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	// The default banner is a color derived from the user ID, stable
	// across provisioning runs.
	assert.Equal(t, color.ForUser("user-1"), p.BannerColor)
	assert.Empty(t, p.BannerImage)
}

func TestNewProfile_ExplicitDisplayName(t *testing.T) {
	p := NewProfile("user-1", "ana@example.com", "Ana")
	assert.Equal(t, "Ana", p.DisplayName)
}

func TestProfile_BannerMutualExclusion(t *testing.T) {
	p := NewProfile("user-1", "ana@example.com", "Ana")

	p.SetBannerColor("#A8B89F")
	assert.Equal(t, "#A8B89F", p.BannerColor)
	assert.Empty(t, p.BannerImage)

	p.SetBannerImage("https://cdn.example.com/banner.jpg")
	assert.Equal(t, "https://cdn.example.com/banner.jpg", p.BannerImage)
	assert.Empty(t, p.BannerColor, "setting an image clears the color")

	p.SetBannerColor("#334433")
	assert.Empty(t, p.BannerImage, "setting a color clears the image")
}

func TestEmailLocalPart(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"ana@example.com", "ana"},
		{"a.b+tag@x.co", "a.b+tag"},
		{"@example.com", "Reader"},
		{"not-an-email", "Reader"},
		{"", "Reader"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EmailLocalPart(tt.email), "email %q", tt.email)
	}
}

func TestReadingStatus_Valid(t *testing.T) {
	for _, s := range []ReadingStatus{StatusReading, StatusRead, StatusWantToRead, StatusAbandoned} {
		assert.True(t, s.Valid())
	}
	assert.False(t, ReadingStatus("paused").Valid())
	assert.False(t, ReadingStatus("").Valid())
}

func TestLibraryEntry_SetProgress_Clamps(t *testing.T) {
	var e LibraryEntry

	e.SetProgress(-5)
	assert.Equal(t, 0, *e.ProgressPercent)

	e.SetProgress(150)
	assert.Equal(t, 100, *e.ProgressPercent)

	e.SetProgress(42)
	assert.Equal(t, 42, *e.ProgressPercent)
}
