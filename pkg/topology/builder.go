package topology

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/observability"
)

// Provider supplies raw resource records for one account and region.
// Implementations live under pkg/provider.
type Provider interface {
	// ListNetworks returns every network of the region with its subnets,
	// route tables, internet gateways and peering lists.
	ListNetworks(ctx context.Context, scope RegionScope) ([]Network, error)

	// PeeringConnection looks up a single peering connection by id.
	PeeringConnection(ctx context.Context, scope RegionScope, id string) (Peering, error)
}

// DefaultConcurrency is the number of (account, region) listings fetched at
// once when no [WithConcurrency] option is given.
const DefaultConcurrency = 1

// Option configures a [Builder].
type Option func(*Builder)

// WithLogger sets the logger used for per-route debug output.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithConcurrency sets how many (account, region) listings are fetched in
// parallel. Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(b *Builder) { b.concurrency = max(n, 1) }
}

// WithStrictTargets makes the builder keep only the first classified target
// of a route instead of one edge per populated identifier field.
func WithStrictTargets(strict bool) Option {
	return func(b *Builder) { b.strict = strict }
}

// WithHooks sets the observability hooks. Defaults to [observability.Build].
func WithHooks(h observability.BuildHooks) Option {
	return func(b *Builder) {
		if h != nil {
			b.hooks = h
		}
	}
}

// WithReconciler injects the peering reconciler used by [Builder.Build].
// Without it every Build starts from a fresh reconciler.
func WithReconciler(r *Reconciler) Option {
	return func(b *Builder) { b.reconciler = r }
}

// Builder assembles a [Model] from provider listings.
type Builder struct {
	provider    Provider
	logger      *log.Logger
	concurrency int
	strict      bool
	hooks       observability.BuildHooks
	reconciler  *Reconciler
}

// NewBuilder returns a builder reading from p.
func NewBuilder(p Provider, opts ...Option) *Builder {
	b := &Builder{
		provider:    p,
		logger:      log.Default(),
		concurrency: DefaultConcurrency,
		hooks:       observability.Build(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build lists every account × region and assembles the model.
//
// Listings are fetched up to the configured concurrency; the model itself is
// assembled sequentially in account then region order, so the output order
// does not depend on fetch timing. Any provider failure aborts the build and
// no partial model is returned.
func (b *Builder) Build(ctx context.Context, accounts []AccountScope, regions []string) (*Model, error) {
	start := time.Now()
	rec := b.reconciler
	if rec == nil {
		rec = NewReconciler()
	}

	scopes := make([]RegionScope, 0, len(accounts)*len(regions))
	for _, acc := range accounts {
		for _, region := range regions {
			scopes = append(scopes, RegionScope{Account: acc, Region: region})
		}
	}
	b.hooks.OnBuildStart(ctx, len(scopes))

	listings, err := b.fetch(ctx, scopes)
	if err != nil {
		b.hooks.OnBuildComplete(ctx, 0, 0, 0, time.Since(start), err)
		return nil, err
	}

	st := &assembly{model: NewModel(), rec: rec, subnetOwners: make(map[string]string)}
	i := 0
	for _, acc := range accounts {
		accCluster := NewCluster(ClusterAccount, "cluster_"+acc.ID, acc.Label())
		for range regions {
			regionCluster, err := b.buildRegion(ctx, st, scopes[i], listings[i])
			if err != nil {
				b.hooks.OnBuildComplete(ctx, 0, 0, 0, time.Since(start), err)
				return nil, err
			}
			accCluster.Attach(regionCluster)
			i++
		}
		st.model.AddCluster(accCluster)
	}

	dangling := rec.Dangling()
	for _, id := range dangling {
		b.logger.Debug("peering observed from one side only", "connection", id)
	}
	b.logger.Debug("peerings reconciled", "connections", len(rec.Connections()), "edges", rec.Edges(), "dangling", len(dangling))

	m := st.model
	b.hooks.OnBuildComplete(ctx, m.NodeCount(), m.EdgeCount(), len(dangling), time.Since(start), nil)
	return m, nil
}

// assembly is the mutable state of one Build call.
type assembly struct {
	model *Model
	rec   *Reconciler

	// subnetOwners maps a subnet CIDR block to the first subnet id that
	// claimed it.
	subnetOwners map[string]string
}

// fetch lists networks for every scope. Results are indexed like scopes.
func (b *Builder) fetch(ctx context.Context, scopes []RegionScope) ([][]Network, error) {
	out := make([][]Network, len(scopes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, scope := range scopes {
		g.Go(func() error {
			callStart := time.Now()
			networks, err := b.provider.ListNetworks(gctx, scope)
			b.hooks.OnProviderCall(gctx, scope.Account.Name, scope.Region, time.Since(callStart), err)
			if err != nil {
				return errs.ProviderFailure(err, scope.Account.Name, scope.Account.ID, scope.Region)
			}
			b.logger.Debug("listed networks", "account", scope.Account.Name, "region", scope.Region, "networks", len(networks))
			out[i] = networks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) buildRegion(ctx context.Context, st *assembly, scope RegionScope, networks []Network) (*Cluster, error) {
	c := NewCluster(ClusterRegion, "cluster_"+scope.Account.ID+"_"+scope.Region, scope.Label())
	peerings := indexPeerings(networks)

	for _, net := range networks {
		nc, err := b.buildNetwork(ctx, st, scope, net, peerings)
		if err != nil {
			return nil, err
		}
		c.Attach(nc)
	}
	return c, nil
}

func (b *Builder) buildNetwork(ctx context.Context, st *assembly, scope RegionScope, net Network, peerings map[string]Peering) (*Cluster, error) {
	ns := NetworkScope{
		ID:        net.ID,
		CIDRBlock: net.CIDRBlock,
		Name:      NameFromTags(net.Tags),
		Region:    scope,
	}
	c := NewCluster(ClusterNetwork, "cluster_"+net.ID, ns.Label())
	m := st.model

	for _, igw := range net.InternetGateways {
		m.AddNode(c, Node{ID: igw.ID, Kind: KindInternetGateway.String(), Shape: ShapeLargeDiamond})
	}

	for _, p := range net.RequestedPeerings {
		b.observe(st, c, ObserveRequested(net.ID, p))
	}
	for _, p := range net.AcceptedPeerings {
		b.observe(st, c, ObserveAccepted(net.ID, p))
	}

	for _, sub := range net.Subnets {
		ss := SubnetScope{
			ID:        sub.ID,
			CIDRBlock: sub.CIDRBlock,
			Name:      NameFromTags(sub.Tags),
			Network:   ns,
		}
		if ss.CIDRBlock == "" {
			b.logger.Warn("skipping subnet without IPv4 CIDR block", "subnet", sub.ID, "network", net.ID)
			continue
		}

		sc := NewCluster(ClusterSubnet, "cluster_"+sub.ID, ss.Label())
		m.AddNode(sc, Node{ID: ss.CIDRBlock, Kind: NodeKindSubnet, Shape: ShapeSubnet})
		if owner, ok := st.subnetOwners[ss.CIDRBlock]; !ok {
			st.subnetOwners[ss.CIDRBlock] = sub.ID
		} else if owner != sub.ID {
			b.logger.Warn("subnet CIDR block already used by another subnet", "cidr", ss.CIDRBlock, "subnet", sub.ID, "owner", owner)
		}
		c.Attach(sc)

		for _, rt := range net.RouteTables {
			b.logger.Debug("route table", "id", rt.ID)
			for _, assoc := range rt.Associations {
				b.logger.Debug("association", "subnet", assoc.SubnetID)
				if assoc.SubnetID != sub.ID {
					continue
				}
				for _, route := range rt.Routes {
					if err := b.addRoute(ctx, m, c, ss, route, peerings); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return c, nil
}

func (b *Builder) observe(st *assembly, c *Cluster, obs PeeringObservation) {
	b.logger.Debug("peering", "connection", obs.ConnectionID, "role", obs.Role, "status", obs.StatusCode)
	em := st.rec.Observe(obs)
	m := st.model
	if em.NodeID == "" {
		return
	}
	m.AddNode(c, Node{ID: em.NodeID, Kind: KindPeeringConnection.String(), Shape: ShapeTripleOctagon})
	if em.Edge != nil {
		m.AddEdge(Edge{From: em.Edge.RequesterNodeID, To: em.Edge.AccepterNodeID, Bidirectional: true})
	}
}

func (b *Builder) addRoute(ctx context.Context, m *Model, c *Cluster, ss SubnetScope, route Route, peerings map[string]Peering) error {
	b.logger.Debug("route", "destination", route.DestinationCIDRBlock, "gateway", route.GatewayID)

	edges := RouteEdges(ss.CIDRBlock, route)
	if b.strict && len(edges) > 1 {
		b.logger.Warn("route has more than one target, keeping the first",
			"subnet", ss.ID, "destination", route.DestinationCIDRBlock, "targets", len(edges))
		edges = edges[:1]
	}

	for _, e := range edges {
		nodeID := e.Target.ID
		if e.Target.Kind == KindPeeringConnection {
			role, err := b.peeringRole(ctx, ss.Network, e.Target.ID, peerings)
			if err != nil {
				return err
			}
			nodeID = PeeringNodeID(role, e.Target.ID)
		}
		m.AddNode(c, Node{ID: nodeID, Kind: e.Target.Kind.String(), Shape: e.Target.Shape})
		m.AddEdge(Edge{From: e.SourceSubnetCIDR, To: nodeID, Label: e.DestinationCIDR})
	}
	return nil
}

// peeringRole returns the side of connection id played by network ns.
// The region's own listings are consulted before asking the provider.
func (b *Builder) peeringRole(ctx context.Context, ns NetworkScope, id string, peerings map[string]Peering) (Role, error) {
	p, ok := peerings[id]
	if !ok {
		var err error
		p, err = b.provider.PeeringConnection(ctx, ns.Region, id)
		if err != nil {
			return RoleRequester, errs.ProviderFailure(err, ns.Region.Account.Name, ns.Region.Account.ID, ns.Region.Region)
		}
	}
	if p.AccepterNetworkID == ns.ID {
		return RoleAccepter, nil
	}
	return RoleRequester, nil
}

func indexPeerings(networks []Network) map[string]Peering {
	idx := make(map[string]Peering)
	for _, net := range networks {
		for _, p := range net.RequestedPeerings {
			idx[p.ID] = p
		}
		for _, p := range net.AcceptedPeerings {
			idx[p.ID] = p
		}
	}
	return idx
}
