// Package awsec2 implements [topology.Provider] against the EC2 API.
//
// Credentials come from the shared config and credentials files: each
// account is addressed by its profile name. One client is created per
// (profile, region) pair and reused for the life of the provider.
package awsec2

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

// DefaultMaxAttempts is the SDK retry budget for throttled or failed calls.
const DefaultMaxAttempts = 5

// API is the subset of the EC2 client used by [Provider].
type API interface {
	ec2.DescribeVpcsAPIClient
	ec2.DescribeSubnetsAPIClient
	ec2.DescribeRouteTablesAPIClient
	ec2.DescribeInternetGatewaysAPIClient
	ec2.DescribeVpcPeeringConnectionsAPIClient
}

// ClientFactory creates an EC2 client for one account and region.
type ClientFactory func(ctx context.Context, scope topology.RegionScope) (API, error)

// Option configures a [Provider].
type Option func(*Provider)

// WithClientFactory replaces the SDK-backed client factory.
func WithClientFactory(f ClientFactory) Option {
	return func(p *Provider) { p.factory = f }
}

// WithMaxAttempts sets the SDK retry budget per call.
func WithMaxAttempts(n int) Option {
	return func(p *Provider) { p.maxAttempts = max(n, 1) }
}

// WithConfigFiles points the SDK at explicit credentials/config files
// instead of the defaults.
func WithConfigFiles(credentials ...string) Option {
	return func(p *Provider) { p.credentialFiles = credentials }
}

// WithLogger sets the logger for client creation messages.
func WithLogger(l *log.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// Provider lists VPC resources through the EC2 API.
type Provider struct {
	factory         ClientFactory
	maxAttempts     int
	credentialFiles []string
	logger          *log.Logger

	mu      sync.Mutex
	clients map[string]API
}

// New returns a provider using the shared AWS configuration.
func New(opts ...Option) *Provider {
	p := &Provider{
		maxAttempts: DefaultMaxAttempts,
		logger:      log.Default(),
		clients:     make(map[string]API),
	}
	p.factory = p.sdkClient
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) sdkClient(ctx context.Context, scope topology.RegionScope) (API, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithSharedConfigProfile(scope.Account.Name),
		config.WithRegion(scope.Region),
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), p.maxAttempts)
		}),
	}
	if len(p.credentialFiles) > 0 {
		loadOpts = append(loadOpts, config.WithSharedCredentialsFiles(p.credentialFiles))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config for profile %s: %w", scope.Account.Name, err)
	}
	return ec2.NewFromConfig(cfg), nil
}

func (p *Provider) client(ctx context.Context, scope topology.RegionScope) (API, error) {
	key := scope.Account.Name + "/" + scope.Region
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err := p.factory(ctx, scope)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("created ec2 client", "profile", scope.Account.Name, "region", scope.Region)
	p.clients[key] = c
	return c, nil
}

// ListNetworks returns every VPC of the region with its subnets, route
// tables, attached internet gateways and peering connections, in the order
// the API returns them.
func (p *Provider) ListNetworks(ctx context.Context, scope topology.RegionScope) ([]topology.Network, error) {
	c, err := p.client(ctx, scope)
	if err != nil {
		return nil, err
	}

	vpcs, err := listVpcs(ctx, c)
	if err != nil {
		return nil, err
	}
	subnets, err := listSubnets(ctx, c)
	if err != nil {
		return nil, err
	}
	tables, err := listRouteTables(ctx, c)
	if err != nil {
		return nil, err
	}
	igws, err := listInternetGateways(ctx, c)
	if err != nil {
		return nil, err
	}
	peerings, err := listPeerings(ctx, c, nil)
	if err != nil {
		return nil, err
	}

	return group(vpcs, subnets, tables, igws, peerings), nil
}

// PeeringConnection looks up a single peering connection by id.
func (p *Provider) PeeringConnection(ctx context.Context, scope topology.RegionScope, id string) (topology.Peering, error) {
	c, err := p.client(ctx, scope)
	if err != nil {
		return topology.Peering{}, err
	}
	found, err := listPeerings(ctx, c, []string{id})
	if err != nil {
		return topology.Peering{}, err
	}
	if len(found) == 0 {
		return topology.Peering{}, errs.New(errs.ErrCodeNotFound, "peering connection %s not found", id)
	}
	return convertPeering(found[0]), nil
}

// =============================================================================
// Paginated listings
// =============================================================================

func listVpcs(ctx context.Context, c API) ([]types.Vpc, error) {
	var out []types.Vpc
	pg := ec2.NewDescribeVpcsPaginator(c, &ec2.DescribeVpcsInput{})
	for pg.HasMorePages() {
		page, err := pg.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe vpcs: %w", err)
		}
		out = append(out, page.Vpcs...)
	}
	return out, nil
}

func listSubnets(ctx context.Context, c API) ([]types.Subnet, error) {
	var out []types.Subnet
	pg := ec2.NewDescribeSubnetsPaginator(c, &ec2.DescribeSubnetsInput{})
	for pg.HasMorePages() {
		page, err := pg.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe subnets: %w", err)
		}
		out = append(out, page.Subnets...)
	}
	return out, nil
}

func listRouteTables(ctx context.Context, c API) ([]types.RouteTable, error) {
	var out []types.RouteTable
	pg := ec2.NewDescribeRouteTablesPaginator(c, &ec2.DescribeRouteTablesInput{})
	for pg.HasMorePages() {
		page, err := pg.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe route tables: %w", err)
		}
		out = append(out, page.RouteTables...)
	}
	return out, nil
}

func listInternetGateways(ctx context.Context, c API) ([]types.InternetGateway, error) {
	var out []types.InternetGateway
	pg := ec2.NewDescribeInternetGatewaysPaginator(c, &ec2.DescribeInternetGatewaysInput{})
	for pg.HasMorePages() {
		page, err := pg.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe internet gateways: %w", err)
		}
		out = append(out, page.InternetGateways...)
	}
	return out, nil
}

func listPeerings(ctx context.Context, c API, ids []string) ([]types.VpcPeeringConnection, error) {
	var out []types.VpcPeeringConnection
	pg := ec2.NewDescribeVpcPeeringConnectionsPaginator(c, &ec2.DescribeVpcPeeringConnectionsInput{
		VpcPeeringConnectionIds: ids,
	})
	for pg.HasMorePages() {
		page, err := pg.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe vpc peering connections: %w", err)
		}
		out = append(out, page.VpcPeeringConnections...)
	}
	return out, nil
}
