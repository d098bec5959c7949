// backend/src/database/blob_store.go
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrBlobNotFound is returned by Get when no blob exists under the given key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is a minimal key-value store over the snapshots table. Each key
// holds one opaque blob; Put overwrites it in a single upsert statement, so a
// concurrent reader never observes a partial write.
type BlobStore struct {
	db *sql.DB
}

func NewBlobStore(db *sql.DB) *BlobStore {
	return &BlobStore{db: db}
}

// Get returns the blob stored under key, or ErrBlobNotFound.
func (s *BlobStore) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM snapshots WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %q: %w", key, err)
	}
	return data, nil
}

// Put stores data under key, replacing any previous value.
func (s *BlobStore) Put(key string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing blob %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob under key. Deleting an absent key is not an error.
func (s *BlobStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM snapshots WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting blob %q: %w", key, err)
	}
	return nil
}
