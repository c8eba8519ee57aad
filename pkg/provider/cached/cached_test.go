package cached

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vpcmap/pkg/cache"
	"github.com/matzehuels/vpcmap/pkg/observability"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

type countingProvider struct {
	calls int
	nets  []topology.Network
	err   error
}

func (p *countingProvider) ListNetworks(context.Context, topology.RegionScope) ([]topology.Network, error) {
	p.calls++
	return p.nets, p.err
}

func (p *countingProvider) PeeringConnection(_ context.Context, _ topology.RegionScope, id string) (topology.Peering, error) {
	return topology.Peering{ID: id}, nil
}

type recordingHooks struct {
	mu                sync.Mutex
	hits, misses, set int
}

func (h *recordingHooks) OnCacheHit(context.Context, string) {
	h.mu.Lock()
	h.hits++
	h.mu.Unlock()
}

func (h *recordingHooks) OnCacheMiss(context.Context, string) {
	h.mu.Lock()
	h.misses++
	h.mu.Unlock()
}

func (h *recordingHooks) OnCacheSet(context.Context, string, int) {
	h.mu.Lock()
	h.set++
	h.mu.Unlock()
}

var scope = topology.RegionScope{
	Account: topology.AccountScope{Name: "team_a", ID: "111111111111"},
	Region:  "us-east-1",
}

func newProvider(t *testing.T, inner topology.Provider) (*Provider, *recordingHooks) {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	hooks := &recordingHooks{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	p := New(inner, fc, nil)
	p.Logger = log.New(io.Discard)
	return p, hooks
}

func TestListNetworksCachesResult(t *testing.T) {
	inner := &countingProvider{nets: []topology.Network{{ID: "vpc-1", CIDRBlock: "10.0.0.0/16"}}}
	p, hooks := newProvider(t, inner)
	ctx := context.Background()

	for range 3 {
		nets, err := p.ListNetworks(ctx, scope)
		if err != nil {
			t.Fatal(err)
		}
		if len(nets) != 1 || nets[0].ID != "vpc-1" {
			t.Fatalf("ListNetworks() = %+v", nets)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if hooks.misses != 1 || hooks.hits != 2 || hooks.set != 1 {
		t.Errorf("hooks hits/misses/sets = %d/%d/%d, want 2/1/1", hooks.hits, hooks.misses, hooks.set)
	}
}

func TestListNetworksRefresh(t *testing.T) {
	inner := &countingProvider{nets: []topology.Network{{ID: "vpc-1"}}}
	p, _ := newProvider(t, inner)
	ctx := context.Background()

	if _, err := p.ListNetworks(ctx, scope); err != nil {
		t.Fatal(err)
	}
	p.Refresh = true
	inner.nets = []topology.Network{{ID: "vpc-2"}}
	nets, err := p.ListNetworks(ctx, scope)
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 || nets[0].ID != "vpc-2" {
		t.Errorf("refresh should bypass the cache: calls %d, nets %+v", inner.calls, nets)
	}

	// The refreshed listing replaced the cached one
	p.Refresh = false
	nets, _ = p.ListNetworks(ctx, scope)
	if inner.calls != 2 || nets[0].ID != "vpc-2" {
		t.Errorf("cached listing = %+v after %d calls", nets, inner.calls)
	}
}

func TestListNetworksErrorNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("Throttling")}
	p, hooks := newProvider(t, inner)
	ctx := context.Background()

	for range 2 {
		if _, err := p.ListNetworks(ctx, scope); !errors.Is(err, inner.err) {
			t.Fatalf("ListNetworks() error = %v", err)
		}
	}
	if inner.calls != 2 || hooks.set != 0 {
		t.Errorf("errors must not be cached: calls %d, sets %d", inner.calls, hooks.set)
	}
}

func TestScopesAreSeparate(t *testing.T) {
	inner := &countingProvider{nets: []topology.Network{{ID: "vpc-1"}}}
	p, _ := newProvider(t, inner)
	ctx := context.Background()

	other := scope
	other.Region = "eu-west-1"
	p.ListNetworks(ctx, scope)
	p.ListNetworks(ctx, other)
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestCorruptEntryRefetched(t *testing.T) {
	inner := &countingProvider{nets: []topology.Network{{ID: "vpc-1"}}}
	p, _ := newProvider(t, inner)
	ctx := context.Background()

	key := p.Keyer.NetworksKey(scope.Account.ID, scope.Region)
	if err := p.Cache.Set(ctx, key, []byte("{not a list"), time.Hour); err != nil {
		t.Fatal(err)
	}
	nets, err := p.ListNetworks(ctx, scope)
	if err != nil || len(nets) != 1 || inner.calls != 1 {
		t.Errorf("ListNetworks() = %+v, %v after %d calls", nets, err, inner.calls)
	}
}

func TestNilCacheDisablesCaching(t *testing.T) {
	inner := &countingProvider{}
	p := New(inner, nil, nil)
	p.Logger = log.New(io.Discard)
	p.ListNetworks(context.Background(), scope)
	p.ListNetworks(context.Background(), scope)
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
	if pcx, _ := p.PeeringConnection(context.Background(), scope, "pcx-1"); pcx.ID != "pcx-1" {
		t.Error("PeeringConnection should delegate")
	}
}
