package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pipeops/healthoor/pkg/config"
)

// Compile-time interface check.
var _ Reader = (*localReader)(nil)

type localReader struct {
	dir      string
	manifest string
}

// NewLocalReader creates a Reader backed by a local directory.
func NewLocalReader(cfg *config.LocalStorageConfig, manifest string) Reader {
	return &localReader{dir: cfg.Dir, manifest: manifest}
}

// GetManifest reads {dir}/{manifest}. Returns (nil, nil) when it does
// not exist.
func (r *localReader) GetManifest(_ context.Context) ([]byte, error) {
	return r.readFile(r.manifest)
}

// GetRunFile reads {dir}/{filename}. Returns (nil, nil) when the file
// does not exist.
func (r *localReader) GetRunFile(
	_ context.Context, filename string,
) ([]byte, error) {
	return r.readFile(filename)
}

func (r *localReader) readFile(name string) ([]byte, error) {
	p := filepath.Join(r.dir, name)

	data, err := os.ReadFile(p) //nolint:gosec // trusted paths from config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading file %s: %w", p, err)
	}

	return data, nil
}
