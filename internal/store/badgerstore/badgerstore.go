// Package badgerstore keeps photo metadata in an embedded badger database.
//
// Records live under "photo/<zero-padded id>" so a prefix scan returns them in
// insertion order. A second key, "filename/<stored filename>", maps to the id
// and enforces filename uniqueness. Both keys are written in one transaction.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/vbonduro/photato/internal/domain"
)

const (
	photoPrefix    = "photo/"
	filenamePrefix = "filename/"
	sequenceKey    = "seq/photo"
	sequenceLease  = 100
)

var ErrDuplicateFilename = errors.New("stored filename already recorded")

type PhotoStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens (or creates) a store in dir. An empty dir opens an in-memory
// store, which is what the tests use.
func Open(dir string) (*PhotoStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceLease)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open id sequence: %w", err)
	}

	return &PhotoStore{db: db, seq: seq}, nil
}

func (s *PhotoStore) Close() error {
	return errors.Join(s.seq.Release(), s.db.Close())
}

func (s *PhotoStore) Create(ctx context.Context, photo *domain.Photo) (*domain.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Sequence starts at 0; ids start at 1 like an auto-increment column.
	n, err := s.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate photo id: %w", err)
	}

	now := time.Now().UTC()
	created := *photo
	created.ID = int64(n) + 1
	created.CreatedAt = now
	created.UpdatedAt = now

	data, err := json.Marshal(&created)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal photo: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		fnKey := []byte(filenamePrefix + created.Filename)
		if _, err := txn.Get(fnKey); err == nil {
			return ErrDuplicateFilename
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(photoKey(created.ID), data); err != nil {
			return err
		}
		return txn.Set(fnKey, []byte(strconv.FormatInt(created.ID, 10)))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	return &created, nil
}

func (s *PhotoStore) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	var photo *domain.Photo
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		photo, err = getPhoto(txn, photoKey(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

func (s *PhotoStore) GetByFilename(ctx context.Context, filename string) (*domain.Photo, error) {
	var photo *domain.Photo
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(filenamePrefix + filename))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt filename index for %q: %w", filename, err)
		}
		photo, err = getPhoto(txn, photoKey(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// List returns every photo in insertion order.
func (s *PhotoStore) List(ctx context.Context) ([]*domain.Photo, error) {
	photos := []*domain.Photo{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(photoPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			photo := &domain.Photo{}
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, photo)
			}); err != nil {
				return err
			}
			photos = append(photos, photo)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}

func getPhoto(txn *badger.Txn, key []byte) (*domain.Photo, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	photo := &domain.Photo{}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, photo)
	}); err != nil {
		return nil, err
	}
	return photo, nil
}

// photoKey zero-pads the id so lexicographic key order matches id order.
func photoKey(id int64) []byte {
	return fmt.Appendf(nil, "%s%020d", photoPrefix, id)
}
