// Package storage provides read access to run data in a backend (local
// filesystem or S3) without the caller knowing the underlying details.
package storage

import (
	"context"
	"fmt"

	"github.com/pipeops/healthoor/pkg/config"
)

// Reader reads the manifest and per-run payload files from a backend.
type Reader interface {
	// GetManifest reads the manifest file listing available runs.
	// Returns (nil, nil) when it does not exist.
	GetManifest(ctx context.Context) ([]byte, error)

	// GetRunFile reads a run payload file by its manifest file name.
	// Returns (nil, nil) when the file does not exist.
	GetRunFile(ctx context.Context, filename string) ([]byte, error)
}

// NewReader creates the Reader for the enabled storage backend.
func NewReader(cfg *config.SourceConfig) (Reader, error) {
	if cfg.Storage.Local != nil && cfg.Storage.Local.Enabled {
		return NewLocalReader(cfg.Storage.Local, cfg.Manifest), nil
	}

	if cfg.Storage.S3 != nil && cfg.Storage.S3.Enabled {
		return NewS3Reader(cfg.Storage.S3, cfg.Manifest), nil
	}

	return nil, fmt.Errorf("no storage backend enabled")
}
