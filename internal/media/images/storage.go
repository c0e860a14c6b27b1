// Package images provides profile image validation, processing, and storage.
package images

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Kind identifies which profile image slot a file belongs to.
type Kind string

// Image slots a user can upload to.
const (
	KindAvatar Kind = "avatar"
	KindBanner Kind = "banner"
)

// Valid reports whether the kind is a known image slot.
func (k Kind) Valid() bool {
	return k == KindAvatar || k == KindBanner
}

// knownExts are the extensions Save may produce. Get and Delete probe
// all of them because a re-upload can change the format.
var knownExts = []string{"jpg", "png", "webp", "gif"}

// Storage manages profile image filesystem operations.
// Thread-safe for concurrent operations.
// Images are stored as {basePath}/users/{userID}/{kind}.{ext}.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a new Storage instance.
// basePath should be the media directory (e.g., ~/Nook/media).
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	storagePath := filepath.Join(basePath, "users")

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create users directory: %w", err)
	}

	return &Storage{
		basePath: storagePath,
	}, nil
}

// Save stores image data for a user's image slot.
// Any previous upload in the slot is removed first, so a format change
// never leaves a stale variant behind.
func (s *Storage) Save(userID string, kind Kind, ext string, imgData []byte) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if !kind.Valid() {
		return fmt.Errorf("unknown image kind %q", kind)
	}
	if len(imgData) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userDir := filepath.Join(s.basePath, userID)
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return fmt.Errorf("failed to create user media directory: %w", err)
	}

	for _, known := range knownExts {
		if known == ext {
			continue
		}
		_ = os.Remove(filepath.Join(userDir, fmt.Sprintf("%s.%s", kind, known)))
	}

	path := s.Path(userID, kind, ext)
	if err := os.WriteFile(path, imgData, 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	return nil
}

// Get retrieves image data for a user's image slot.
// Returns the data and the extension it was stored with.
func (s *Storage) Get(userID string, kind Kind) ([]byte, string, error) {
	if userID == "" {
		return nil, "", fmt.Errorf("user ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ext := range knownExts {
		data, err := os.ReadFile(s.Path(userID, kind, ext))
		if err == nil {
			return data, ext, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to read image file: %w", err)
		}
	}

	return nil, "", fmt.Errorf("image not found for %s/%s: %w", userID, kind, os.ErrNotExist)
}

// Exists checks if an image exists in a user's image slot.
func (s *Storage) Exists(userID string, kind Kind) bool {
	if userID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ext := range knownExts {
		if _, err := os.Stat(s.Path(userID, kind, ext)); err == nil {
			return true
		}
	}
	return false
}

// Delete removes a user's image slot, whatever format it was stored in.
func (s *Storage) Delete(userID string, kind Kind) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ext := range knownExts {
		if err := os.Remove(s.Path(userID, kind, ext)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete image file: %w", err)
		}
	}

	return nil
}

// Hash computes SHA256 hash of a stored image.
// Returns hex-encoded string for ETag/cache validation.
func (s *Storage) Hash(userID string, kind Kind) (string, error) {
	data, _, err := s.Get(userID, kind)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// Path returns the full filesystem path for a user's image slot.
func (s *Storage) Path(userID string, kind Kind, ext string) string {
	return filepath.Join(s.basePath, userID, fmt.Sprintf("%s.%s", kind, ext))
}
