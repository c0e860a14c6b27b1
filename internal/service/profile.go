package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nookapp/nook-server/internal/domain"
	domainerrors "github.com/nookapp/nook-server/internal/errors"
	"github.com/nookapp/nook-server/internal/media/images"
	"github.com/nookapp/nook-server/internal/session"
	"github.com/nookapp/nook-server/internal/store"
	"github.com/nookapp/nook-server/internal/validation"
)

// ProfileService handles profile reads, edits, and image uploads.
// Creation is owned by the provisioner (see internal/session); this
// service only touches profiles that already exist.
type ProfileService struct {
	store       store.Store
	provisioner *session.Provisioner
	images      *images.Processor
	validate    *validation.Validator
	logger      *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(
	st store.Store,
	provisioner *session.Provisioner,
	processor *images.Processor,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		store:       st,
		provisioner: provisioner,
		images:      processor,
		validate:    validation.New(),
		logger:      logger,
	}
}

// UpdateProfileRequest contains a partial profile edit. Nil fields are
// left untouched; the whole edit lands in a single store write.
type UpdateProfileRequest struct {
	DisplayName    *string   `json:"display_name" validate:"omitempty,min=1,max=50"`
	Bio            *string   `json:"bio" validate:"omitempty,max=500"`
	PhotoURL       *string   `json:"photo_url" validate:"omitempty,max=500"`
	FavoriteGenres *[]string `json:"favorite_genres" validate:"omitempty,max=10"`
	BannerImage    *string   `json:"banner_image" validate:"omitempty,max=500"`
	BannerColor    *string   `json:"banner_color" validate:"omitempty,hexcolor"`
}

// Get returns the user's profile.
// NotFound means provisioning has not completed for this user.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("profile not provisioned yet")
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// Provision creates the user's profile if it does not exist yet.
// Delegates to the provisioner so a concurrent stream-triggered
// provision collapses into the same single write.
func (s *ProfileService) Provision(ctx context.Context, user *domain.User, displayName string) error {
	return s.provisioner.EnsureProfile(ctx, user.Identity(), displayName)
}

// Update applies a partial edit as one atomic write.
// Banner image and banner color are mutually exclusive: setting one
// clears the other, and a request naming both is rejected.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.Profile, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	if req.BannerImage != nil && req.BannerColor != nil {
		return nil, domainerrors.Validation("banner_image and banner_color are mutually exclusive")
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("profile not provisioned yet")
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if req.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.PhotoURL != nil {
		profile.PhotoURL = *req.PhotoURL
	}
	if req.FavoriteGenres != nil {
		profile.FavoriteGenres = *req.FavoriteGenres
	}
	if req.BannerImage != nil {
		profile.SetBannerImage(*req.BannerImage)
	}
	if req.BannerColor != nil {
		profile.SetBannerColor(*req.BannerColor)
	}
	profile.Touch()

	if err := s.store.UpdateProfile(ctx, profile); err != nil {
		return nil, domainerrors.ProfileWrite("failed to update profile").WithCause(err)
	}

	s.logger.Debug("profile updated", "user_id", userID)
	return profile, nil
}

// UploadImage validates and stores a profile image upload, returning
// its public URL and blurhash. The profile record is not modified; the
// client follows up with a PATCH carrying the returned URL.
func (s *ProfileService) UploadImage(ctx context.Context, userID string, kind images.Kind, data []byte) (*images.ProcessedImage, error) {
	if len(data) > images.MaxUploadSize {
		return nil, domainerrors.UploadTooLarge(fmt.Sprintf("image exceeds %d byte limit", images.MaxUploadSize))
	}

	result, err := s.images.Process(userID, kind, data)
	if err != nil {
		return nil, domainerrors.UploadNotImage("upload rejected").WithCause(err)
	}

	s.logger.Info("profile image uploaded",
		"user_id", userID,
		"kind", kind,
		"size", len(data),
	)
	return result, nil
}

// GetImage reads a stored profile image for serving.
func (s *ProfileService) GetImage(userID string, kind images.Kind) (data []byte, ext string, err error) {
	data, ext, err = s.images.Storage().Get(userID, kind)
	if err != nil {
		return nil, "", domainerrors.NotFound("image not found")
	}
	return data, ext, nil
}
