// Package cached wraps a [topology.Provider] with a [cache.Cache] so repeat
// runs skip the network for listings fetched recently.
package cached

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vpcmap/pkg/cache"
	"github.com/matzehuels/vpcmap/pkg/observability"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

// KeyTypeNetworks labels cache events for network listings.
const KeyTypeNetworks = "networks"

// Provider caches ListNetworks results. PeeringConnection is always
// delegated, since the builder only calls it for connections the listing
// did not include.
type Provider struct {
	Inner   topology.Provider
	Cache   cache.Cache
	Keyer   cache.Keyer
	TTL     time.Duration
	Refresh bool // skip reads, still write fresh results
	Logger  *log.Logger
}

// New returns a caching provider. A nil cache disables caching and a nil
// keyer uses [cache.NewDefaultKeyer].
func New(inner topology.Provider, c cache.Cache, keyer cache.Keyer) *Provider {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Provider{
		Inner:  inner,
		Cache:  c,
		Keyer:  keyer,
		TTL:    cache.TTLNetworks,
		Logger: log.Default(),
	}
}

// ListNetworks returns the cached listing for scope or fetches and stores it.
// Cache read and write failures are logged and otherwise ignored.
func (p *Provider) ListNetworks(ctx context.Context, scope topology.RegionScope) ([]topology.Network, error) {
	key := p.Keyer.NetworksKey(scope.Account.ID, scope.Region)
	hooks := observability.Cache()

	if !p.Refresh {
		data, hit, err := p.Cache.Get(ctx, key)
		if err != nil {
			p.Logger.Warn("cache read failed", "key", key, "error", err)
		}
		if hit {
			var nets []topology.Network
			if err := json.Unmarshal(data, &nets); err == nil {
				hooks.OnCacheHit(ctx, KeyTypeNetworks)
				p.Logger.Debug("cache hit", "account", scope.Account.Name, "region", scope.Region)
				return nets, nil
			}
			// Undecodable entry: fall through and overwrite
		}
		hooks.OnCacheMiss(ctx, KeyTypeNetworks)
	}

	nets, err := p.Inner.ListNetworks(ctx, scope)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(nets); err == nil {
		if err := p.Cache.Set(ctx, key, data, p.TTL); err != nil {
			p.Logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			hooks.OnCacheSet(ctx, KeyTypeNetworks, len(data))
		}
	}
	return nets, nil
}

// PeeringConnection delegates to the wrapped provider.
func (p *Provider) PeeringConnection(ctx context.Context, scope topology.RegionScope, id string) (topology.Peering, error) {
	return p.Inner.PeeringConnection(ctx, scope, id)
}

var _ topology.Provider = (*Provider)(nil)
