package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"giftrank/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxBodySize     = 1 << 20
	defaultShutdownTimeout = 15 * time.Second
)

// Options configures the HTTP surface
type Options struct {
	// Production enables the cron secret check and disables GET /api/sync
	Production bool
	CronSecret string

	CheckoutRatePerMinute float64
	CheckoutBurst         int

	AllowedOrigins []string
	MaxBodySize    int64
}

// Server exposes the sync trigger, ranking and checkout endpoints
type Server struct {
	opts     Options
	sync     service.SyncService
	checkout service.CheckoutService
	ranking  service.RankingService
	limiter  *RateLimiter
	router   chi.Router
}

// New builds the router and its handlers
func New(opts Options, syncService service.SyncService, checkoutService service.CheckoutService, rankingService service.RankingService) *Server {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		opts:     opts,
		sync:     syncService,
		checkout: checkoutService,
		ranking:  rankingService,
		limiter:  NewRateLimiter(opts.CheckoutRatePerMinute, opts.CheckoutBurst),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", s.handleSync)
		r.Get("/sync", s.handleManualSync)

		r.Get("/stores/{storeID}/ranking", s.handleRanking)

		r.With(s.limiter.Middleware).Post("/checkout", s.handleCheckout)
	})

	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
