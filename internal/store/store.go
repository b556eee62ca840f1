// Package store defines the ordered key/value index store shared by every
// durable mapping in the bot: chat address bindings, user address bindings,
// holder chat sets, cached chat descriptors and invite links. The ASCII key
// prefixes in keys.go are the on-disk format; backends must preserve them
// byte for byte for the data to stay portable between implementations.
package store

import (
	"context"
	"strings"
)

// Store is an ordered key/value store. Per-key operations are atomic;
// multi-key updates are last-writer-wins with no transaction, which the
// callers tolerate by keeping each logical update path over a disjoint or
// idempotent key set.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set writes key to value, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan iterates keys in lexicographic order starting at start
	// (inclusive), descending when reverse is set. fn returns false to stop
	// the scan; a non-nil error from fn aborts the scan and is returned.
	Scan(ctx context.Context, start string, reverse bool, fn func(key, value string) (bool, error)) error

	// Close releases the underlying resources.
	Close() error
}

// ScanPrefix iterates all keys with the given prefix in ascending order,
// stopping at the first key outside the prefix. Callers should always go
// through this rather than hand-rolling the boundary check on Scan.
func ScanPrefix(ctx context.Context, s Store, prefix string, fn func(key, value string) (bool, error)) error {
	return s.Scan(ctx, prefix, false, func(key, value string) (bool, error) {
		if !strings.HasPrefix(key, prefix) {
			return false, nil
		}
		return fn(key, value)
	})
}
