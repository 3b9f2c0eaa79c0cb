package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"giftrank/config"
	"giftrank/database"
	"giftrank/events"
	"giftrank/gateway"
	"giftrank/infrastructure"
	"giftrank/infrastructure/observability"
	"giftrank/notify"
	"giftrank/period"
	"giftrank/repository"
	"giftrank/service"

	log "github.com/sirupsen/logrus"
)

// app holds the wired dependencies shared by every subcommand
type app struct {
	cfg        *config.Config
	db         *database.DB
	bus        *events.Bus
	uowFactory service.UnitOfWorkFactory
	clock      *period.Clock
	gateway    gateway.Client

	syncService     service.SyncService
	checkoutService service.CheckoutService
	rankingService  service.RankingService
	adminService    service.AdminService

	closers []func(ctx context.Context)
}

// newApp connects to every backing system named by the configuration.
// Optional integrations (NATS, Discord, metrics) are skipped when unconfigured.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	logCloser, err := infrastructure.SetupLogging(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	a.onClose(func(context.Context) { _ = logCloser.Close() })

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.onClose(func(ctx context.Context) {
		if err := observability.ShutdownGlobalMetrics(ctx); err != nil {
			log.WithError(err).Warn("Error shutting down metrics")
		}
	})

	a.clock, err = period.NewClock(cfg.CivilTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid civil timezone: %w", err)
	}

	log.Debug("Connecting to database...")
	a.db, err = database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.onClose(func(context.Context) { a.db.Close() })

	a.bus = events.NewBus()
	if err := a.attachNATS(ctx); err != nil {
		return nil, err
	}
	if err := a.attachDiscord(); err != nil {
		return nil, err
	}
	// Registered last so in-flight handlers drain before their sinks close
	a.onClose(func(context.Context) { a.bus.Wait() })

	a.uowFactory = repository.NewUnitOfWorkFactory(a.db, a.bus)
	a.gateway = newGateway(cfg)

	a.syncService = service.NewSyncService(a.uowFactory, a.gateway, a.clock, service.SyncOptions{
		Lookback:         cfg.SyncLookback,
		RecomputeWorkers: cfg.SyncRecomputeWorkers,
	})
	a.checkoutService = service.NewCheckoutService(a.uowFactory, a.gateway)
	a.rankingService = service.NewRankingService(a.uowFactory, a.clock)
	a.adminService = service.NewAdminService(a.uowFactory, a.clock)

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"timezone":    a.clock.Location().String(),
		"dryRun":      cfg.UseDryRunGateway(),
	}).Info("Application initialized")

	return a, nil
}

func (a *app) attachNATS(ctx context.Context) error {
	servers := a.cfg.ParseNATSServers()
	if len(servers) == 0 {
		log.Debug("NATS_SERVERS not set, domain events stay in-process")
		return nil
	}

	client := infrastructure.NewNATSClient(servers)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.onClose(func(context.Context) {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Error closing NATS connection")
		}
	})

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.DomainEventStream, mapper.StreamSubjects()); err != nil {
		return fmt.Errorf("failed to ensure NATS stream: %w", err)
	}
	infrastructure.NewNATSEventPublisher(client, mapper).Attach(a.bus)

	log.WithField("servers", strings.Join(servers, ",")).Info("Publishing domain events to NATS")
	return nil
}

func (a *app) attachDiscord() error {
	if a.cfg.DiscordToken == "" || a.cfg.DiscordChannelID == "" {
		return nil
	}

	session, err := notify.NewDiscordSession(a.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	notify.NewGiftNotifier(session, a.cfg.DiscordChannelID, repository.NewTalentRepository(a.db)).Attach(a.bus)

	log.WithField("channelId", a.cfg.DiscordChannelID).Info("Gift notifications enabled")
	return nil
}

func newGateway(cfg *config.Config) gateway.Client {
	if cfg.UseDryRunGateway() {
		log.Warn("Square credentials missing or dry run requested, using dry-run gateway")
		return gateway.NewDryRunClient(cfg.SiteURL)
	}
	return gateway.NewSquareClient(gateway.SquareConfig{
		AccessToken:   cfg.SquareAccessToken,
		LocationID:    cfg.SquareLocationID,
		Environment:   cfg.SquareEnvironment,
		RedirectURL:   strings.TrimRight(cfg.SiteURL, "/") + "/stores",
		RatePerSecond: cfg.SquareRatePerSecond,
		Timeout:       30 * time.Second,
	})
}

func (a *app) onClose(fn func(ctx context.Context)) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse acquisition order
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

// shutdown closes the app within a bounded window
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.close(ctx)
}
