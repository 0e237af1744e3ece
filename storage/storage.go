package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Fetch when no object exists at the given URL.
var ErrNotFound = errors.New("storage: blob not found")

// BlobInfo describes one stored object.
type BlobInfo struct {
	Pathname string `json:"pathname"`
	URL      string `json:"url"`
}

// PutOptions control how an object is written.
type PutOptions struct {
	Public      bool
	ContentType string
}

// BlobStore is the contract the rest of the service consumes: a flat
// key/value object store with list, fetch and overwrite-in-place put. Every
// Put targets a fixed deterministic pathname so repeated saves replace the
// same object instead of accumulating versions. Fetch must bypass any cache
// in front of the store, otherwise read-after-write breaks.
type BlobStore interface {
	List(ctx context.Context) ([]BlobInfo, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
	Put(ctx context.Context, pathname string, data []byte, opts PutOptions) error
	Close() error
}
