// Package store provides the SQLite-backed local record store: a durable
// key-value map of named, JSON-serialized record collections.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store persists named record collections. It is safe for concurrent use;
// each read or write of a collection is serialized under one mutex so a
// mutation is fully visible before the next read.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the record store database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening record store: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetRaw returns the raw JSON value stored under key, with ok == false when
// the key has never been written.
func (s *Store) GetRaw(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRawLocked(key)
}

func (s *Store) getRawLocked(key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM collections WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading collection %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// SetRaw stores the raw JSON value under key, replacing any previous value.
func (s *Store) SetRaw(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setRawLocked(key, value)
}

func (s *Store) setRawLocked(key string, value []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`INSERT OR REPLACE INTO collections (key, value, updated_at)
		VALUES (?, ?, ?)`, key, string(value), now)
	if err != nil {
		return fmt.Errorf("writing collection %q: %w", key, err)
	}
	return nil
}

// Remove deletes the value stored under key.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM collections WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("removing collection %q: %w", key, err)
	}
	return nil
}

// Clear wipes every collection. Used on sign-out.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM collections")
	if err != nil {
		return fmt.Errorf("clearing record store: %w", err)
	}
	return nil
}

// GetString reads a scalar setting, returning def when unset.
func (s *Store) GetString(key, def string) (string, error) {
	raw, ok, err := s.GetRaw(key)
	if err != nil || !ok {
		return def, err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("decoding %q: %w", key, err)
	}
	return v, nil
}

// SetString writes a scalar setting.
func (s *Store) SetString(key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.SetRaw(key, raw)
}

// Get decodes the collection stored under key into a slice of records.
// A missing key yields an empty slice.
func Get[T any](s *Store, key string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getLocked[T](s, key)
}

func getLocked[T any](s *Store, key string) ([]T, error) {
	raw, ok, err := s.getRawLocked(key)
	if err != nil || !ok {
		return nil, err
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding collection %q: %w", key, err)
	}
	return records, nil
}

// Set encodes and stores a slice of records under key.
func Set[T any](s *Store, key string, records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setLocked(s, key, records)
}

func setLocked[T any](s *Store, key string, records []T) error {
	if records == nil {
		records = []T{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding collection %q: %w", key, err)
	}
	return s.setRawLocked(key, raw)
}

// Update applies fn to the collection under key and writes the result back,
// all under the store lock.
func Update[T any](s *Store, key string, fn func([]T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := getLocked[T](s, key)
	if err != nil {
		return err
	}
	updated, err := fn(records)
	if err != nil {
		return err
	}
	return setLocked(s, key, updated)
}
