package domain

import (
	"time"

	"github.com/nookapp/nook-server/internal/color"
)

// SubscriptionTier represents the user's subscription level.
type SubscriptionTier string

const (
	// TierFree is the default tier for provisioned profiles.
	TierFree SubscriptionTier = "free"
	// TierPremium unlocks premium features.
	TierPremium SubscriptionTier = "premium"
)

// Profile is the user-facing record created once per user after email
// verification (provisioning). It exists if and only if provisioning
// has completed for that user ID, and is written atomically: one write
// for create, one write per edit.
type Profile struct {
	UserID      string `json:"user_id"` // = auth user ID, immutable
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`

	// BannerImage and BannerColor are mutually exclusive: setting one
	// clears the other. Use SetBannerImage/SetBannerColor.
	BannerImage string `json:"banner_image,omitempty"`
	BannerColor string `json:"banner_color,omitempty"`

	FavoriteGenres []string         `json:"favorite_genres,omitempty"`
	Subscription   SubscriptionTier `json:"subscription"`

	CreatedAt time.Time `json:"created_at"` // Set once, at provisioning
	UpdatedAt time.Time `json:"updated_at"` // Set on every edit
}

// NewProfile creates a profile with provisioning defaults.
// displayName falls back to the email local part when empty, and the
// banner starts as a color derived from the user ID until the user
// picks their own.
func NewProfile(userID, email, displayName string) *Profile {
	if displayName == "" {
		displayName = EmailLocalPart(email)
	}
	now := time.Now()
	return &Profile{
		UserID:       userID,
		Email:        email,
		DisplayName:  displayName,
		BannerColor:  color.ForUser(userID),
		Subscription: TierFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SetBannerImage sets an uploaded banner image and clears any color.
func (p *Profile) SetBannerImage(url string) {
	p.BannerImage = url
	p.BannerColor = ""
}

// SetBannerColor sets a banner color and clears any uploaded image.
func (p *Profile) SetBannerColor(color string) {
	p.BannerColor = color
	p.BannerImage = ""
}

// Touch updates the modification timestamp.
func (p *Profile) Touch() {
	p.UpdatedAt = time.Now()
}

// IsPremium returns true for premium subscribers.
func (p *Profile) IsPremium() bool {
	return p.Subscription == TierPremium
}
