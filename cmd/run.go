package cmd

import (
	"context"
	"fmt"

	"giftrank/config"
	"giftrank/server"
	"giftrank/worker"

	log "github.com/sirupsen/logrus"
)

// Serve runs the HTTP API until ctx is cancelled
func Serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.shutdown()

	srv := server.New(server.Options{
		Production:            cfg.IsProduction(),
		CronSecret:            cfg.CronSecret,
		CheckoutRatePerMinute: cfg.CheckoutRatePerMinute,
		AllowedOrigins:        []string{cfg.SiteURL},
	}, a.syncService, a.checkoutService, a.rankingService)

	if cfg.SyncInterval > 0 {
		log.WithField("interval", cfg.SyncInterval).Info("Starting sync worker")
		stop := worker.StartSyncWorker(ctx, a.syncService, cfg.SyncInterval)
		defer stop()
	} else {
		log.Info("SYNC_INTERVAL not set, sync runs only when triggered")
	}

	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("Shutdown completed")
	return nil
}
