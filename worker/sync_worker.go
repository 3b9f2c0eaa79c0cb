package worker

import (
	"context"
	"sync"
	"time"

	"giftrank/models"

	log "github.com/sirupsen/logrus"
)

// Syncer runs one sync cycle
type Syncer interface {
	Run(ctx context.Context) (*models.SyncResult, error)
}

// StartSyncWorker starts a background worker that runs a sync cycle immediately and then every interval.
// Cycles run on a single goroutine, so a slow cycle delays the next tick instead of overlapping it.
// Returns a cleanup function that stops the worker and waits for an in-flight cycle to finish.
func StartSyncWorker(ctx context.Context, syncer Syncer, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup

	runOnce := func() {
		result, err := syncer.Run(runCtx)
		if err != nil {
			// Already logged by the service; the next tick retries from the same watermark
			log.WithError(err).Debug("Scheduled sync cycle failed")
			return
		}
		log.WithFields(log.Fields{
			"syncedPayments": result.SyncedPayments,
			"updatedStores":  result.UpdatedStores,
		}).Debug("Scheduled sync cycle finished")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithField("interval", interval).Info("Sync worker started")

		// Run immediately on startup
		runOnce()

		for {
			select {
			case <-runCtx.Done():
				log.Info("Sync worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Sync worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stopChan)
			cancel()
			wg.Wait()
		})
	}
}
