package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/graphia/graphia-server/internal/logger"
)

// draftGCInterval is how often the draft store's value log is compacted.
const draftGCInterval = 30 * time.Minute

// DraftGCJob periodically reclaims space held by expired edit sessions.
type DraftGCJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *DraftGCJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideDraftGCJob provides the draft garbage collection job.
func ProvideDraftGCJob(i do.Injector) (*DraftGCJob, error) {
	drafts := do.MustInvoke[*DraftStoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(draftGCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := drafts.CollectGarbage(); err != nil {
					log.Warn("Draft garbage collection failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Draft GC job started", "interval", draftGCInterval)

	return &DraftGCJob{cancel: cancel, done: done}, nil
}
