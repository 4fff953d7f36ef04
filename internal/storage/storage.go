package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Package storage persists aggregation run snapshots locally so the
// article generator can pick up the latest report between invocations.

// ErrNotFound is returned when no snapshot matches the lookup.
var ErrNotFound = errors.New("snapshot not found")

// Store keeps recent run snapshots.
type Store interface {
	Close() error
	SaveRun(runID string, payload []byte) error
	Run(runID string) ([]byte, error)
	LatestRun() (string, []byte, error)
}

// Options controls retention characteristics for concrete store
// implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 5 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                       { return nil }
func (noopStore) SaveRun(string, []byte) error       { return nil }
func (noopStore) Run(string) ([]byte, error)         { return nil, ErrNotFound }
func (noopStore) LatestRun() (string, []byte, error) { return "", nil, ErrNotFound }
