// Package loader fetches the manifest and its run payloads through a
// storage.Reader and normalizes them into canonical runs.
package loader

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pipeops/healthoor/pkg/model"
	"github.com/pipeops/healthoor/pkg/normalize"
	"github.com/pipeops/healthoor/pkg/storage"
)

// defaultConcurrency is the number of run files fetched in parallel
// when no explicit concurrency value is configured.
const defaultConcurrency = 4

// Loader loads the bounded run history from a storage backend.
type Loader struct {
	log         logrus.FieldLogger
	reader      storage.Reader
	window      int
	concurrency int
}

// New creates a loader over the given reader. window bounds the history
// to the N newest manifest entries (the default window when <= 0).
func New(
	log logrus.FieldLogger,
	reader storage.Reader,
	window int,
	concurrency int,
) *Loader {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Loader{
		log:         log.WithField("component", "loader"),
		reader:      reader,
		window:      window,
		concurrency: concurrency,
	}
}

// Load fetches the manifest, then its referenced run files with bounded
// parallelism, and returns the normalized runs in date-ascending order.
// A missing manifest yields an empty history; individual run files that
// are missing or malformed are logged and skipped.
func (l *Loader) Load(ctx context.Context) ([]*model.Run, error) {
	data, err := l.reader.GetManifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}

	if data == nil {
		l.log.Warn("Manifest not found, no runs to load")

		return nil, nil
	}

	entries, err := normalize.Manifest(data, l.window)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	// Each goroutine writes its own slot, so no locking is needed.
	runs := make([]*model.Run, len(entries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, entry := range entries {
		i, entry := i, entry

		g.Go(func() error {
			run, lErr := l.loadRun(gCtx, entry)
			if lErr != nil {
				l.log.WithError(lErr).
					WithField("file", entry.File).
					Warn("Failed to load run")

				return nil //nolint:nilerr // log and continue
			}

			runs[i] = run

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading runs: %w", err)
	}

	loaded := make([]*model.Run, 0, len(runs))

	for _, run := range runs {
		if run != nil {
			loaded = append(loaded, run)
		}
	}

	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].Timestamp.Before(loaded[j].Timestamp)
	})

	l.log.WithFields(logrus.Fields{
		"manifest_entries": len(entries),
		"loaded_runs":      len(loaded),
	}).Info("Run history loaded")

	return loaded, nil
}

// loadRun fetches and normalizes a single run file. JUnit XML payloads
// are recognized by their file extension; everything else is treated as
// a JSON run record.
func (l *Loader) loadRun(
	ctx context.Context, entry normalize.ManifestEntry,
) (*model.Run, error) {
	data, err := l.reader.GetRunFile(ctx, entry.File)
	if err != nil {
		return nil, fmt.Errorf("fetching run file: %w", err)
	}

	if data == nil {
		return nil, fmt.Errorf("run file %s not found", entry.File)
	}

	var run *model.Run

	if strings.EqualFold(path.Ext(entry.File), ".xml") {
		run, err = normalize.RunFromJUnit(data)
	} else {
		run, err = normalize.RunFromJSON(data)
	}

	if err != nil {
		return nil, fmt.Errorf("normalizing run file %s: %w", entry.File, err)
	}

	applyManifestEntry(run, entry)

	return run, nil
}

// applyManifestEntry fills run fields the payload itself did not carry
// from the manifest entry that referenced it.
func applyManifestEntry(run *model.Run, entry normalize.ManifestEntry) {
	if run.ID == "" {
		base := path.Base(entry.File)
		run.ID = strings.TrimSuffix(base, path.Ext(base))
	}

	if run.Label == "" {
		run.Label = entry.Label
	}

	if !run.HasDate() {
		run.Timestamp = entry.When()
	}
}
