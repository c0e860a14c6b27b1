package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Upload limits. Dimensions are capped because a decoded 20000x20000
// PNG allocates gigabytes regardless of its compressed size.
const (
	MaxUploadSize = 5 * 1024 * 1024 // 5 MiB
	maxDimension  = 8192
)

// ProcessedImage describes a stored upload.
type ProcessedImage struct {
	URL      string `json:"url"`       // Public path the image is served from
	BlurHash string `json:"blur_hash"` // Placeholder hash for progressive loading
	Ext      string `json:"ext"`       // Stored file extension (jpg, png, webp, gif)
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Processor validates and stores profile image uploads.
type Processor struct {
	storage *Storage
	logger  *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(storage *Storage, logger *slog.Logger) *Processor {
	return &Processor{
		storage: storage,
		logger:  logger,
	}
}

// Storage exposes the underlying image storage for serving handlers.
func (p *Processor) Storage() *Storage {
	return p.storage
}

// Process validates an uploaded image and stores it in the user's slot.
// The format is sniffed from the bytes, never trusted from the filename.
// Returns the public URL and BlurHash for the profile record.
func (p *Processor) Process(userID string, kind Kind, data []byte) (*ProcessedImage, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown image kind %q", kind)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image data cannot be empty")
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("image exceeds %d byte limit", MaxUploadSize)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a supported image format: %w", err)
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		return nil, fmt.Errorf("image dimensions %dx%d exceed %dpx limit", cfg.Width, cfg.Height, maxDimension)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	hash, err := ComputeBlurHash(img)
	if err != nil {
		p.logger.Warn("failed to compute blurhash",
			"user_id", userID,
			"kind", kind,
			"error", err,
		)
		hash = "" // Placeholder is optional, the upload still succeeds
	}

	ext := extForFormat(format)
	if err := p.storage.Save(userID, kind, ext, data); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	p.logger.Debug("stored profile image",
		"user_id", userID,
		"kind", kind,
		"format", format,
		"size", len(data),
	)

	return &ProcessedImage{
		URL:      fmt.Sprintf("/media/users/%s/%s", userID, kind),
		BlurHash: hash,
		Ext:      ext,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// extForFormat maps an image.DecodeConfig format name to a file extension.
func extForFormat(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
