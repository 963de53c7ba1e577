package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/graphia/graphia-server/internal/config"
	"github.com/graphia/graphia-server/internal/detail"
	"github.com/graphia/graphia-server/internal/logger"
)

// DraftStoreHandle wraps the draft store with shutdown capability.
type DraftStoreHandle struct {
	*detail.BadgerDraftStore
}

// Shutdown implements do.Shutdownable.
func (h *DraftStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideDraftStore opens the Badger database holding open edit sessions.
func ProvideDraftStore(i do.Injector) (*DraftStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := filepath.Join(cfg.Data.Path, "drafts")
	store, err := detail.OpenBadgerDraftStore(path, cfg.Drafts.TTL, log.Logger)
	if err != nil {
		return nil, err
	}

	return &DraftStoreHandle{BadgerDraftStore: store}, nil
}
