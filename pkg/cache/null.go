package cache

import (
	"context"
	"time"
)

// NullCache never stores anything. The CLI uses it for --no-cache, for
// snapshot runs and when the cache backend is "none".
type NullCache struct{}

// NewNullCache returns a [NullCache].
func NewNullCache() Cache {
	return NullCache{}
}

// Get always misses.
func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NullCache) Delete(context.Context, string) error { return nil }

// Clear has nothing to remove, so `vpcmap cache clear` succeeds with caching
// disabled.
func (NullCache) Clear(context.Context) error { return nil }

func (NullCache) Close() error { return nil }

var (
	_ Cache   = NullCache{}
	_ Clearer = NullCache{}
)
