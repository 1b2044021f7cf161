package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
)

var (
	// ErrUnavailable reports that the storage engine cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrUnknownPartition reports use of a partition that was never opened.
	ErrUnknownPartition = errors.New("unknown partition")
	// ErrUnknownCache reports use of a cache generation that does not exist.
	ErrUnknownCache = errors.New("unknown cache")
)

// Entry is one key/value pair of a partition.
type Entry struct {
	Key   string
	Value []byte
}

// UpdateFunc computes the replacement for a value. found is false when the
// key is absent. Returning an error aborts the update without writing.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// KV is a partitioned key-value store. Every call runs in its own
// transaction; there are no cross-call transactions.
type KV interface {
	// Get returns the stored value. A missing key is (nil, false, nil).
	Get(ctx context.Context, partition, key string) ([]byte, bool, error)
	// Set upserts a value.
	Set(ctx context.Context, partition, key string, value []byte) error
	// Update performs an atomic read-modify-write of one key. fn must not
	// call back into the store.
	Update(ctx context.Context, partition, key string, fn UpdateFunc) error
	// Delete removes a key; deleting an absent key is a no-op.
	Delete(ctx context.Context, partition, key string) error
	// Entries snapshots a partition in insertion order.
	Entries(ctx context.Context, partition string) ([]Entry, error)
}

// CachedResponse pairs a request key with its response snapshot.
type CachedResponse struct {
	Key      string
	Response *fetch.Response
}

// CacheStorage holds named cache generations.
type CacheStorage interface {
	// OpenCache creates the named cache if absent.
	OpenCache(ctx context.Context, name string) error
	// CacheNames lists existing caches in creation order.
	CacheNames(ctx context.Context) ([]string, error)
	// DeleteCache removes a cache and all its entries; it reports whether
	// the cache existed.
	DeleteCache(ctx context.Context, name string) (bool, error)
	// Match looks up a response by request key in the named cache.
	Match(ctx context.Context, cacheName, key string) (*fetch.Response, bool, error)
	// Put stores one response, creating the cache if needed.
	Put(ctx context.Context, cacheName, key string, resp *fetch.Response) error
	// PutAll stores every response in one transaction: all or nothing.
	PutAll(ctx context.Context, cacheName string, entries []CachedResponse) error
}
