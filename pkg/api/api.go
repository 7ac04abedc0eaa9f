package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethpandaops/qahub/pkg/api/store"
	"github.com/ethpandaops/qahub/pkg/config"
	"github.com/ethpandaops/qahub/pkg/simulator"
	"github.com/ethpandaops/qahub/pkg/stats"
	"github.com/ethpandaops/qahub/pkg/upload"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

// server is the application context: every dependency a handler needs is
// constructed once in Start and reached through it.
type server struct {
	log     logrus.FieldLogger
	cfg     *config.Config
	version string

	store     store.Store
	stats     *stats.Aggregator
	simulator *simulator.Simulator
	archiver  upload.Archiver
	metrics   *metrics
	limiter   *rateLimiterMap

	router     chi.Router
	httpServer *http.Server
	cancel     context.CancelFunc
	group      *errgroup.Group
}

// NewServer creates a new API server.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.Config,
	version string,
) Server {
	return &server{
		log:     log.WithField("component", "api"),
		cfg:     cfg,
		version: version,
	}
}

// Start opens the store, seeds empty tables, and starts the HTTP server.
func (s *server) Start(ctx context.Context) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}

	addr := s.cfg.Server.Addr()

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if stopErr := s.Stop(); stopErr != nil {
			s.log.WithError(stopErr).Warn("Cleanup after listen failure")
		}

		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group, runCtx = errgroup.WithContext(runCtx)

	s.group.Go(func() error {
		s.log.WithField("listen", addr).Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}

		return nil
	})

	if s.archiver != nil {
		s.group.Go(func() error {
			return s.archiver.Run(runCtx)
		})
	}

	return nil
}

// prepare builds every dependency and the router without binding a
// listener.
func (s *server) prepare(ctx context.Context) error {
	s.store = store.NewStore(s.log, &s.cfg.Database)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	if s.cfg.Seed.Enabled {
		if err := s.store.Seed(ctx, store.DefaultSeedData()); err != nil {
			return fmt.Errorf("seeding store: %w", err)
		}
	}

	s.metrics = newMetrics()
	s.stats = stats.NewAggregator(s.store)

	simOpts := []simulator.Option{simulator.WithObserver(s.metrics)}
	if s.cfg.Simulator.Seed != 0 {
		simOpts = append(simOpts, simulator.WithSeed(s.cfg.Simulator.Seed))
	}

	s.simulator = simulator.New(s.log, s.store, simOpts...)

	if s.cfg.Archive.S3.Enabled {
		archiver := upload.NewS3Archiver(s.log, &s.cfg.Archive.S3)
		if err := archiver.Preflight(ctx); err != nil {
			return fmt.Errorf("archive preflight: %w", err)
		}

		s.archiver = archiver

		s.log.WithField("bucket", s.cfg.Archive.S3.Bucket).
			Info("Report archiving enabled")
	}

	if s.cfg.Server.RateLimit.Enabled {
		s.limiter = newRateLimiterMap(s.cfg.Server.RateLimit.RequestsPerMinute)
	}

	s.router = s.buildRouter()

	return nil
}

// Stop gracefully shuts down the HTTP server, the archiver, and the store.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	if s.cancel != nil {
		s.cancel()
	}

	if s.group != nil {
		if err := s.group.Wait(); err != nil {
			s.log.WithError(err).Warn("Background task error")
		}
	}

	if s.limiter != nil {
		s.limiter.stop()
	}

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}
