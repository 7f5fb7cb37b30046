package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/devadigapratham/printd/axis"
	"go.etcd.io/bbolt"
)

const settingsBucket = "axis_settings"

// BoltStore keeps axis settings in a BoltDB file
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the database at path
func OpenBolt(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}

	store := &BoltStore{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the stored settings of an axis
func (s *BoltStore) Load(ctx context.Context, id axis.ID) (axis.Settings, error) {
	if err := ctx.Err(); err != nil {
		return axis.Settings{}, err
	}

	var settings axis.Settings
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucket))
		if bucket == nil {
			return fmt.Errorf("settings bucket is missing")
		}
		payload := bucket.Get([]byte(id))
		if payload == nil {
			return axis.ErrNotStored
		}
		var err error
		settings, err = decode(id, payload)
		return err
	})
	if err != nil {
		return axis.Settings{}, err
	}
	return settings, nil
}

// Save stores the settings of an axis
func (s *BoltStore) Save(ctx context.Context, id axis.ID, settings axis.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := encode(id, settings)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucket))
		if bucket == nil {
			return fmt.Errorf("settings bucket is missing")
		}
		return bucket.Put([]byte(id), payload)
	})
}

func (s *BoltStore) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(settingsBucket)); err != nil {
			return fmt.Errorf("create settings bucket: %w", err)
		}
		return nil
	})
}
