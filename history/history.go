package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/xeptore/rockar/types"
)

var tracksBucketName = []byte("tracks")

// Storage remembers which tracks were already downloaded, keyed by the track
// path without extension.
type Storage struct {
	db *bbolt.DB
}

func Open(path string) (*Storage, error) {
	opts := &bbolt.Options{ //nolint:exhaustruct
		NoFreelistSync: true,
		Timeout:        1 * time.Second,
		FreelistType:   bbolt.FreelistArrayType,
	}
	db, err := bbolt.Open(path, 0o600, opts)
	if nil != err {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(tracksBucketName); nil != err {
			return fmt.Errorf("failed to create tracks bucket: %v", err)
		}

		return nil
	})
	if nil != err {
		return nil, errors.Join(fmt.Errorf("failed to create buckets: %v", err), db.Close())
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); nil != err {
		return fmt.Errorf("failed to close database: %v", err)
	}

	return nil
}

func (s *Storage) Get(key string) (*types.Match, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(tracksBucketName).Get([]byte(key)); nil != v {
			raw = append([]byte(nil), v...)
		}

		return nil
	})
	if nil != err {
		return nil, false, fmt.Errorf("failed to load track: %v", err)
	}

	if nil == raw {
		return nil, false, nil
	}

	var m types.Match
	if err := json.Unmarshal(raw, &m); nil != err {
		return nil, false, fmt.Errorf("failed to decode stored track: %v", err)
	}

	return &m, true, nil
}

func (s *Storage) Put(key string, m types.Match) error {
	raw, err := json.Marshal(m)
	if nil != err {
		return fmt.Errorf("failed to encode track: %v", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(tracksBucketName).Put([]byte(key), raw); nil != err {
			return fmt.Errorf("failed to store track: %v", err)
		}

		return nil
	})
	if nil != err {
		return fmt.Errorf("failed to store track: %v", err)
	}

	return nil
}
