package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nookapp/nook-server/internal/domain"
	domainerrors "github.com/nookapp/nook-server/internal/errors"
	"github.com/nookapp/nook-server/internal/media/images"
	"github.com/nookapp/nook-server/internal/session"
)

func newTestProfileService(t *testing.T, st *memStore) *ProfileService {
	t.Helper()

	storage, err := images.NewStorage(t.TempDir())
	require.NoError(t, err)
	processor := images.NewProcessor(storage, testLogger())
	provisioner := session.NewProvisioner(st, testLogger())

	return NewProfileService(st, provisioner, processor, testLogger())
}

func seedProfile(t *testing.T, st *memStore, userID, email string) *domain.Profile {
	t.Helper()

	profile := domain.NewProfile(userID, email, "Reader")
	require.NoError(t, st.CreateProfile(context.Background(), profile))
	return profile
}

func TestProfileService_Get(t *testing.T) {
	st := newMemStore()
	svc := newTestProfileService(t, st)
	seedProfile(t, st, "user-1", "reader@example.com")

	profile, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Reader", profile.DisplayName)
}

func TestProfileService_Get_NotProvisioned(t *testing.T) {
	st := newMemStore()
	svc := newTestProfileService(t, st)

	_, err := svc.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestProfileService_Update(t *testing.T) {
	st := newMemStore()
	svc := newTestProfileService(t, st)
	seedProfile(t, st, "user-1", "reader@example.com")

	name := "  New Name  "
	bio := "I read things."
	genres := []string{"fantasy", "sci-fi"}
	updated, err := svc.Update(context.Background(), "user-1", UpdateProfileRequest{
		DisplayName:    &name,
		Bio:            &bio,
		FavoriteGenres: &genres,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.DisplayName)
	assert.Equal(t, "I read things.", updated.Bio)
	assert.Equal(t, genres, updated.FavoriteGenres)

	// Untouched fields survive
	assert.Equal(t, "reader@example.com", updated.Email)
}

func TestProfileService_Update_BannerExclusion(t *testing.T) {
	st := newMemStore()
	svc := newTestProfileService(t, st)
	seedProfile(t, st, "user-1", "reader@example.com")

	img := "/media/users/user-1/banner"
	updated, err := svc.Update(context.Background(), "user-1", UpdateProfileRequest{BannerImage: &img})
	require.NoError(t, err)
	assert.Equal(t, img, updated.BannerImage)
	assert.Empty(t, updated.BannerColor)

	// Switching to a color clears the image
	clr := "#aabbcc"
	updated, err = svc.Update(context.Background(), "user-1", UpdateProfileRequest{BannerColor: &clr})
	require.NoError(t, err)
	assert.Equal(t, clr, updated.BannerColor)
	assert.Empty(t, updated.BannerImage)

	// Both in one request is rejected
	_, err = svc.Update(context.Background(), "user-1", UpdateProfileRequest{
		BannerImage: &img,
		BannerColor: &clr,
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestProfileService_Update_InvalidColor(t *testing.T) {
	st := newMemStore()
	svc := newTestProfileService(t, st)
	seedProfile(t, st, "user-1", "reader@example.com")

	clr := "not-a-color"
	_, err := svc.Update(context.Background(), "user-1", UpdateProfileRequest{BannerColor: &clr})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestProfileService_Provision(t *testing.T) {
	st := newMemStore()
	svc := newTestProfileService(t, st)

	user := &domain.User{
		ID:            "user-1",
		Email:         "reader@example.com",
		EmailVerified: true,
	}

	require.NoError(t, svc.Provision(context.Background(), user, "Reader"))

	profile, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Reader", profile.DisplayName)

	// Running it again is a no-op, not a conflict
	assert.NoError(t, svc.Provision(context.Background(), user, "Reader"))
}

func TestProfileService_UploadImage(t *testing.T) {
	st := newMemStore()
	svc := newTestProfileService(t, st)
	seedProfile(t, st, "user-1", "reader@example.com")

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	result, err := svc.UploadImage(context.Background(), "user-1", images.KindAvatar, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "/media/users/user-1/avatar", result.URL)
	assert.NotEmpty(t, result.BlurHash)

	data, ext, err := svc.GetImage("user-1", images.KindAvatar)
	require.NoError(t, err)
	assert.Equal(t, "png", ext)
	assert.Equal(t, buf.Bytes(), data)
}

func TestProfileService_UploadImage_Rejections(t *testing.T) {
	st := newMemStore()
	svc := newTestProfileService(t, st)

	_, err := svc.UploadImage(context.Background(), "user-1", images.KindAvatar, make([]byte, images.MaxUploadSize+1))
	assert.ErrorIs(t, err, domainerrors.ErrUploadTooLarge)

	_, err = svc.UploadImage(context.Background(), "user-1", images.KindAvatar, []byte("not an image"))
	assert.ErrorIs(t, err, domainerrors.ErrUploadNotImage)
}
