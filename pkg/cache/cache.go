// Package cache provides the key/value store behind cached provider
// listings and rendered artifacts.
//
// Three backends implement [Cache]:
//
//   - [NullCache] never stores anything (caching disabled).
//   - [FileCache] keeps JSON entries under a local directory.
//   - [RedisCache] shares entries between hosts through Redis.
//
// Keys come from a [Keyer] so that every caller derives the same key for
// the same account, region and render options.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found. A miss is not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Default TTLs for cached entries.
const (
	// TTLNetworks applies to provider listings for one account and region.
	TTLNetworks = time.Hour

	// TTLArtifact applies to rendered outputs.
	TTLArtifact = 24 * time.Hour
)
