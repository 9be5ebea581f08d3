package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	recordsBucket = []byte("records")
	byNameBucket  = []byte("by_name")
)

// ErrNotFound is returned when a record id has no entry.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

// NewStoreWithTimeout opens the database, waiting at most timeout for the
// file lock held by another process.
func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{recordsBucket, byNameBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// nameKey orders the index by name first; the id suffix keeps duplicate
// names distinct.
func nameKey(r *Record) []byte {
	k := make([]byte, 0, len(r.Name)+1+len(r.ID))
	k = append(k, r.Name...)
	k = append(k, 0)
	k = append(k, r.ID...)
	return k
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(recordsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// ReadPage returns at most limit records starting at offset, ordered by
// name ascending.
func (s *Store) ReadPage(ctx context.Context, offset, limit int) ([]Record, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid range: offset %d, limit %d", offset, limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]Record, 0, limit)
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(byNameBucket)
		data := tx.Bucket(recordsBucket)

		c := index.Cursor()
		skipped := 0
		for k, id := c.First(); k != nil && len(records) < limit; k, id = c.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			raw := data.Get(id)
			if raw == nil {
				return fmt.Errorf("index entry %q has no record", id)
			}
			var r Record
			if err := json.Unmarshal(raw, &r); err != nil {
				return fmt.Errorf("decoding record %q: %w", id, err)
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SaveRecords inserts or replaces records, keeping the name index in step.
func (s *Store) SaveRecords(records []*Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(recordsBucket)
		index := tx.Bucket(byNameBucket)
		for _, r := range records {
			if r.ID == "" {
				return fmt.Errorf("record %q has no id", r.Name)
			}
			if prev := data.Get([]byte(r.ID)); prev != nil {
				var old Record
				if err := json.Unmarshal(prev, &old); err == nil {
					if err := index.Delete(nameKey(&old)); err != nil {
						return err
					}
				}
			}
			raw, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := data.Put([]byte(r.ID), raw); err != nil {
				return err
			}
			if err := index.Put(nameKey(r), []byte(r.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetRecord(id string) (*Record, error) {
	var r Record
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(recordsBucket).Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) DeleteRecord(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(recordsBucket)
		raw := data.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		if err := tx.Bucket(byNameBucket).Delete(nameKey(&r)); err != nil {
			return err
		}
		return data.Delete([]byte(id))
	})
}
