package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"

	"github.com/nookapp/nook-server/internal/domain"
	"github.com/nookapp/nook-server/internal/store"
)

// profileColumns must match the scan order in scanProfile.
const profileColumns = `user_id, email, display_name, bio, photo_url,
	banner_image, banner_color, favorite_genres, subscription, created_at, updated_at`

func scanProfile(scanner interface{ Scan(dest ...any) error }) (*domain.Profile, error) {
	var p domain.Profile

	var (
		genresJSON   string
		subscription string
		createdAt    string
		updatedAt    string
	)

	err := scanner.Scan(
		&p.UserID,
		&p.Email,
		&p.DisplayName,
		&p.Bio,
		&p.PhotoURL,
		&p.BannerImage,
		&p.BannerColor,
		&genresJSON,
		&subscription,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(genresJSON), &p.FavoriteGenres); err != nil {
		return nil, fmt.Errorf("parse favorite_genres: %w", err)
	}
	p.Subscription = domain.SubscriptionTier(subscription)

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// CreateProfile inserts a provisioned profile and notifies the emitter.
// Returns store.ErrAlreadyExists if the user already has one, which is
// how concurrent provisioning attempts collapse to a single profile.
func (s *Store) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	genresJSON, err := json.Marshal(profile.FavoriteGenres)
	if err != nil {
		return fmt.Errorf("marshal favorite_genres: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (
			user_id, email, display_name, bio, photo_url,
			banner_image, banner_color, favorite_genres, subscription, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.UserID,
		profile.Email,
		profile.DisplayName,
		profile.Bio,
		profile.PhotoURL,
		profile.BannerImage,
		profile.BannerColor,
		string(genresJSON),
		string(profile.Subscription),
		formatTime(profile.CreatedAt),
		formatTime(profile.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	s.emitter.ProfileChanged(profile.UserID, profile)
	return nil
}

// GetProfile retrieves a profile by user ID.
// Returns store.ErrNotFound when the user has not been provisioned yet.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile performs a full row update and notifies the emitter.
// Returns store.ErrNotFound if no profile exists for the user.
func (s *Store) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	genresJSON, err := json.Marshal(profile.FavoriteGenres)
	if err != nil {
		return fmt.Errorf("marshal favorite_genres: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET
			email = ?,
			display_name = ?,
			bio = ?,
			photo_url = ?,
			banner_image = ?,
			banner_color = ?,
			favorite_genres = ?,
			subscription = ?,
			updated_at = ?
		WHERE user_id = ?`,
		profile.Email,
		profile.DisplayName,
		profile.Bio,
		profile.PhotoURL,
		profile.BannerImage,
		profile.BannerColor,
		string(genresJSON),
		string(profile.Subscription),
		formatTime(profile.UpdatedAt),
		profile.UserID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	s.emitter.ProfileChanged(profile.UserID, profile)
	return nil
}
