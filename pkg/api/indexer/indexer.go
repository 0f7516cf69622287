// Package indexer keeps the run index database in sync with the
// storage backend by periodically reloading the manifest window.
package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pipeops/healthoor/pkg/api/runstore"
	"github.com/pipeops/healthoor/pkg/loader"
	"github.com/pipeops/healthoor/pkg/model"
)

// Indexer is a background service that periodically loads the run
// history and upserts it into the run store.
type Indexer interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Indexer = (*indexer)(nil)

type indexer struct {
	log      logrus.FieldLogger
	store    runstore.Store
	loader   *loader.Loader
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	dbMu     sync.Mutex // serializes DB writes to avoid SQLite contention
}

// NewIndexer creates a new background indexer.
func NewIndexer(
	log logrus.FieldLogger,
	store runstore.Store,
	l *loader.Loader,
	interval time.Duration,
) Indexer {
	return &indexer{
		log:      log.WithField("component", "indexer"),
		store:    store,
		loader:   l,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches a background goroutine that runs an immediate indexing
// pass and then ticks at the configured interval. The first pass is
// asynchronous so the caller (the API server) is not blocked.
func (idx *indexer) Start(ctx context.Context) error {
	idx.log.WithField("interval", idx.interval.String()).
		Info("Starting indexer")

	idx.wg.Add(1)

	go func() {
		defer idx.wg.Done()

		// Run one pass immediately.
		idx.runPass(ctx)

		ticker := time.NewTicker(idx.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				idx.runPass(ctx)
			case <-idx.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop signals the indexer goroutine to stop and waits for it.
func (idx *indexer) Stop() error {
	close(idx.done)
	idx.wg.Wait()

	idx.log.Info("Indexer stopped")

	return nil
}

// runPass executes one full indexing pass: load the current run window
// from storage and upsert every run with its test results.
func (idx *indexer) runPass(ctx context.Context) {
	start := time.Now()

	idx.log.Info("Indexing pass started")

	runs, err := idx.loader.Load(ctx)
	if err != nil {
		idx.log.WithError(err).Warn("Indexing pass failed to load runs")

		return
	}

	indexed := 0

	for _, run := range runs {
		select {
		case <-ctx.Done():
			return
		case <-idx.done:
			return
		default:
		}

		if err := idx.indexRun(ctx, run); err != nil {
			idx.log.WithError(err).
				WithField("run_id", run.ID).
				Warn("Failed to index run")

			continue
		}

		indexed++
	}

	idx.log.WithFields(logrus.Fields{
		"indexed_runs": indexed,
		"duration":     time.Since(start).Round(time.Millisecond),
	}).Info("Indexing pass completed")
}

func (idx *indexer) indexRun(ctx context.Context, run *model.Run) error {
	row, tests := runstore.FromModel(run)

	// Serialize DB writes to avoid SQLite BUSY errors.
	idx.dbMu.Lock()
	defer idx.dbMu.Unlock()

	if err := idx.store.UpsertRun(ctx, row); err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	if err := idx.store.ReplaceTests(ctx, run.ID, tests); err != nil {
		return fmt.Errorf("replacing test results: %w", err)
	}

	return nil
}
