// Package boltstore keeps save slots in a bbolt file.
package boltstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/lawnchairsociety/xianmud/internal/state"
)

// ErrSlotNotFound is returned for a slot with no saved data.
var ErrSlotNotFound = state.ErrSlotNotFound

var (
	bucketSaves   = []byte("saves")
	bucketSavedAt = []byte("saved_at")
)

// Store implements state.SlotStore on bbolt. Each slot is one key; writes
// are single transactions so a crash never leaves half a save.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures the buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("boltstore: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSaves, bucketSavedAt} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}
	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	return s.bolt.Path()
}

// SaveSlot writes data under slot.
func (s *Store) SaveSlot(slot string, data []byte) error {
	stamp, err := time.Now().UTC().MarshalText()
	if err != nil {
		return err
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSaves).Put([]byte(slot), data); err != nil {
			return fmt.Errorf("boltstore: put %s: %w", slot, err)
		}
		return tx.Bucket(bucketSavedAt).Put([]byte(slot), stamp)
	})
}

// LoadSlot returns a copy of the save under slot.
func (s *Store) LoadSlot(slot string) ([]byte, error) {
	var out []byte
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSaves).Get([]byte(slot))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
		}
		// bbolt values are only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// ListSlots returns slot names in key order.
func (s *Store) ListSlots() ([]string, error) {
	var slots []string
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSaves).ForEach(func(k, _ []byte) error {
			slots = append(slots, string(k))
			return nil
		})
	})
	return slots, err
}

// SavedAt returns when slot was last written.
func (s *Store) SavedAt(slot string) (time.Time, error) {
	var t time.Time
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSavedAt).Get([]byte(slot))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
		}
		return t.UnmarshalText(v)
	})
	return t, err
}

// DeleteSlot removes slot.
func (s *Store) DeleteSlot(slot string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSaves)
		if b.Get([]byte(slot)) == nil {
			return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
		}
		if err := b.Delete([]byte(slot)); err != nil {
			return err
		}
		return tx.Bucket(bucketSavedAt).Delete([]byte(slot))
	})
}
