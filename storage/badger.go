package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const badgerURLScheme = "blob://"

// BadgerStore keeps blob documents in an embedded badger database. This is
// the default backend for standalone installs: no external services, one
// data directory.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.SugaredLogger
}

// NewBadgerStore opens (or creates) the badger database at dir.
func NewBadgerStore(dir string, logger *zap.SugaredLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	logger.Infow("opened badger blob store", "dir", dir)
	return &BadgerStore{db: db, logger: logger}, nil
}

// List enumerates all stored objects. Badger iterators are key-ordered, so
// the result is deterministic.
func (s *BadgerStore) List(ctx context.Context) ([]BlobInfo, error) {
	var infos []BlobInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			pathname := string(it.Item().KeyCopy(nil))
			infos = append(infos, BlobInfo{
				Pathname: pathname,
				URL:      badgerURLScheme + pathname,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Fetch reads the object bytes for a URL produced by List.
func (s *BadgerStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	pathname := strings.TrimPrefix(url, badgerURLScheme)

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pathname))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put overwrites the object at pathname.
func (s *BadgerStore) Put(ctx context.Context, pathname string, data []byte, opts PutOptions) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(pathname), data)
	})
}

// Close closes the underlying badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
