// Package storage holds the key/value backends behind the two persistence
// tiers: small structured metadata and large diorama artifacts.
package storage

import (
	"context"
	"errors"
)

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("stored value is corrupt")

// KV is a flat key/value store.
type KV interface {
	// Get returns the value and true, or nil and false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
