package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/nookapp/nook-server/internal/config"
	"github.com/nookapp/nook-server/internal/logger"
	"github.com/nookapp/nook-server/internal/media/images"
	"github.com/nookapp/nook-server/internal/search"
	"github.com/nookapp/nook-server/internal/store"
	"github.com/nookapp/nook-server/internal/store/sqlite"
)

// ProvideProfileHub provides the hub that fans profile writes out to
// live session streams.
func ProvideProfileHub(i do.Injector) (*store.ProfileHub, error) {
	return store.NewProfileHub(), nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite store with the profile hub wired in.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	hub := do.MustInvoke[*store.ProfileHub](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "nook.db")
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	db.SetProfileEmitter(hub)

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ProvideImageStorage provides the profile image file storage.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return images.NewStorage(filepath.Join(cfg.Data.BasePath, "media"))
}

// ProvideImageProcessor provides the image upload processor.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	storage := do.MustInvoke[*images.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.NewProcessor(storage, log.Logger), nil
}

// SearchIndexHandle wraps the shelf search index with shutdown capability.
type SearchIndexHandle struct {
	*search.ShelfIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the bleve shelf index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewShelfIndex(search.Options{
		DataPath: filepath.Join(cfg.Data.BasePath, "search"),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	if count, cerr := index.DocumentCount(); cerr == nil {
		log.Info("Search index opened", "documents", count)
	}

	return &SearchIndexHandle{ShelfIndex: index}, nil
}
