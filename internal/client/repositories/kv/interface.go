// Package kv implements the durable key-value storage underlying the outbox,
// the draft store and the local cache.
package kv

import "context"

// Repository is a durable key-value store on the local device.
//
// Get returns (nil, nil) for an absent key; callers treat absence as a plain
// miss, never as an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// List returns every key/value whose key starts with prefix. An empty
	// prefix lists the whole store.
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// Clear removes every key starting with prefix.
	Clear(ctx context.Context, prefix string) error
}
