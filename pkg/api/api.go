// Package api serves the derived run views (history, diffs, timeline,
// exports) over HTTP. Every response is computed fresh from the run
// store and the filter state decoded from the request query string.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pipeops/healthoor/pkg/api/indexer"
	"github.com/pipeops/healthoor/pkg/api/runstore"
	"github.com/pipeops/healthoor/pkg/config"
	"github.com/pipeops/healthoor/pkg/loader"
	"github.com/pipeops/healthoor/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.Config
	store      runstore.Store
	indexer    indexer.Indexer
	httpServer *http.Server
	wg         sync.WaitGroup
	done       chan struct{}
}

// NewServer creates a new API server.
func NewServer(log logrus.FieldLogger, cfg *config.Config) Server {
	return &server{
		log:  log.WithField("component", "api"),
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// Start opens the run store, prepares the indexer, and starts the HTTP
// server.
func (s *server) Start(ctx context.Context) error {
	s.store = runstore.NewStore(s.log, &s.cfg.API.Database)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting run store: %w", err)
	}

	if err := s.prepareIndexing(); err != nil {
		return fmt.Errorf("preparing indexing: %w", err)
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.API.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.API.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.API.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.API.Server.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	// Start the background indexer AFTER the API is listening so that
	// the server is reachable while the first (potentially slow) pass
	// runs.
	if s.indexer != nil {
		if err := s.indexer.Start(ctx); err != nil {
			return fmt.Errorf("starting indexer: %w", err)
		}
	}

	return nil
}

// Stop gracefully shuts down the HTTP server and closes the store.
func (s *server) Stop() error {
	close(s.done)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if s.indexer != nil {
		if err := s.indexer.Stop(); err != nil {
			s.log.WithError(err).Warn("Indexer stop error")
		}
	}

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping run store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}

// prepareIndexing builds the storage reader, loader, and indexer.
// Indexing is on unless the config explicitly disables it; without it
// the server only serves whatever was indexed previously.
func (s *server) prepareIndexing() error {
	if s.cfg.API.Indexing != nil && !s.cfg.API.Indexing.Enabled {
		s.log.Info("Indexing disabled, serving existing index only")

		return nil
	}

	reader, err := storage.NewReader(&s.cfg.Source)
	if err != nil {
		return fmt.Errorf("creating storage reader: %w", err)
	}

	interval, err := time.ParseDuration(config.DefaultIndexInterval)
	if err != nil {
		return fmt.Errorf("parsing default indexing interval: %w", err)
	}

	concurrency := config.DefaultIndexConcurrency

	if idxCfg := s.cfg.API.Indexing; idxCfg != nil {
		if idxCfg.Interval != "" {
			d, pErr := time.ParseDuration(idxCfg.Interval)
			if pErr != nil {
				return fmt.Errorf("parsing indexing interval: %w", pErr)
			}

			interval = d
		}

		if idxCfg.Concurrency > 0 {
			concurrency = idxCfg.Concurrency
		}
	}

	l := loader.New(s.log, reader, s.cfg.Source.RunWindow, concurrency)
	s.indexer = indexer.NewIndexer(s.log, s.store, l, interval)

	s.log.Info("Indexing service enabled")

	return nil
}
