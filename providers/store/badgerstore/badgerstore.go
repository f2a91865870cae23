// Package badgerstore keeps content blobs in a local BadgerDB, keyed by the
// binary CID.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/hengadev/medlock/internal/content"
	"github.com/hengadev/medlock/internal/types"
)

var keyPrefix = []byte("blob:")

type Store struct {
	db *badger.DB
}

// Open opens or creates the database directory at path.
func Open(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("%w: open badger at %s: %w", types.ErrStoreUnavailable, path, err)
	}
	return &Store{db: db}, nil
}

// New wraps an already open database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func storageKey(id types.ContentID) ([]byte, error) {
	raw, err := content.Key(id)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), keyPrefix...), raw...), nil
}

func (s *Store) Put(ctx context.Context, data []byte) (types.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	id, err := content.Sum(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	key, err := storageKey(id)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %w", types.ErrStoreUnavailable, id, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id types.ContentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	key, err := storageKey(id)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: content %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", types.ErrStoreUnavailable, id, err)
	}
	if err := content.Verify(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
