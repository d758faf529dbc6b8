// Package state persists the most recent metadata snapshot per device
// host so the library can be listed without a connection.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.remsync/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var fetchedAtKey = []byte("fetched_at")

func snapshotBucket(host string) []byte {
	return []byte("snapshot:" + host + ":records")
}

func snapshotMetaBucket(host string) []byte {
	return []byte("snapshot:" + host + ":meta")
}

// State wraps a bbolt database holding cached device snapshots.
type State struct {
	db *bolt.DB
}

// Load opens the state database at ~/.remsync/state.db, creating it
// if it does not exist.
func Load() (*State, error) {
	return LoadAt(dbPath())
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. Useful for tests that need an isolated database.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the cached snapshot for a host. The previous
// snapshot is dropped wholesale so records deleted on the device do
// not linger in the cache.
func (s *State) SaveSnapshot(host string, records []*remarkable.Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(snapshotBucket(host)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}

		b, err := tx.CreateBucket(snapshotBucket(host))
		if err != nil {
			return err
		}

		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(rec.ID), data); err != nil {
				return err
			}
		}

		meta, err := tx.CreateBucketIfNotExists(snapshotMetaBucket(host))
		if err != nil {
			return err
		}

		return meta.Put(fetchedAtKey, []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

// Snapshot returns the cached records for a host and when they were
// fetched. A host never snapshotted returns no records and a zero
// time.
func (s *State) Snapshot(host string) ([]*remarkable.Record, time.Time, error) {
	var (
		records   []*remarkable.Record
		fetchedAt time.Time
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotBucket(host))
		if b == nil {
			return nil
		}

		if err := b.ForEach(func(k, v []byte) error {
			rec, err := remarkable.ParseRecord(string(k), v)
			if err != nil {
				return err
			}

			records = append(records, rec)

			return nil
		}); err != nil {
			return err
		}

		meta := tx.Bucket(snapshotMetaBucket(host))
		if meta == nil {
			return nil
		}

		if v := meta.Get(fetchedAtKey); v != nil {
			if t, err := time.Parse(time.RFC3339, string(v)); err == nil {
				fetchedAt = t
			}
		}

		return nil
	})

	return records, fetchedAt, err
}

func dbPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		// Fail loudly rather than silently writing to the current
		// directory, where the database might end up inside a
		// source-controlled tree.
		fmt.Fprintf(os.Stderr, "fatal: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}

	return filepath.Join(dir, ".remsync", "state.db")
}
