package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	runBucket        = "runs"
	expiryValueBytes = 8
)

// boltStore implements a snapshot Store backed by BoltDB. Values carry
// an 8-byte big-endian expiry prefix followed by the payload, so keys
// iterate in run-id order and pruning needs no secondary index.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	snapshotTTL     time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed snapshot store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		snapshotTTL:     opts.SnapshotTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SaveRun persists the report payload for a run id.
func (b *boltStore) SaveRun(runID string, payload []byte) error {
	if b == nil || b.db == nil {
		return nil
	}
	if runID == "" {
		return fmt.Errorf("run id is empty")
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return fmt.Errorf("run bucket missing")
		}
		value := make([]byte, expiryValueBytes+len(payload))
		binary.BigEndian.PutUint64(value, uint64(now.Add(b.snapshotTTL).Unix()))
		copy(value[expiryValueBytes:], payload)
		return bucket.Put([]byte(runID), value)
	})
}

// Run loads the payload saved for a run id.
func (b *boltStore) Run(runID string) ([]byte, error) {
	if b == nil || b.db == nil {
		return nil, ErrNotFound
	}

	var payload []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return fmt.Errorf("run bucket missing")
		}
		value := bucket.Get([]byte(runID))
		if value == nil {
			return ErrNotFound
		}
		expiry, body, ok := decodeSnapshot(value)
		if !ok || !expiry.After(time.Now()) {
			return ErrNotFound
		}
		payload = append([]byte(nil), body...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// LatestRun returns the most recent unexpired snapshot. Run ids are
// timestamp-derived, so the last key wins.
func (b *boltStore) LatestRun() (string, []byte, error) {
	if b == nil || b.db == nil {
		return "", nil, ErrNotFound
	}

	var (
		runID   string
		payload []byte
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return fmt.Errorf("run bucket missing")
		}
		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			expiry, body, ok := decodeSnapshot(v)
			if !ok || !expiry.After(time.Now()) {
				continue
			}
			runID = string(k)
			payload = append([]byte(nil), body...)
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return "", nil, err
	}
	return runID, payload, nil
}

// maybeCleanupExpired removes expired snapshots on a fixed cadence to
// avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return fmt.Errorf("run bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decodeSnapshot(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.lastCleanup.Store(now.Unix())
	return nil
}

func decodeSnapshot(value []byte) (time.Time, []byte, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, nil, false
	}
	expiry := time.Unix(int64(binary.BigEndian.Uint64(value[:expiryValueBytes])), 0)
	return expiry, value[expiryValueBytes:], true
}
