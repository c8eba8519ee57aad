package topology

import "fmt"

// =============================================================================
// Scopes
// =============================================================================

// AccountScope identifies one cloud account being graphed.
type AccountScope struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
}

// Label returns "name (id)", the text used for account clusters.
func (a AccountScope) Label() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// RegionScope is one region inspected within an account.
type RegionScope struct {
	Account AccountScope
	Region  string
}

// Label returns "name (id) - region".
func (r RegionScope) Label() string {
	return fmt.Sprintf("%s - %s", r.Account.Label(), r.Region)
}

func (r RegionScope) String() string {
	return r.Account.Name + "/" + r.Region
}

// NetworkScope is a VPC resolved for display.
type NetworkScope struct {
	ID        string
	CIDRBlock string
	Name      string
	Region    RegionScope
}

// Label returns "name (id) | cidr".
func (n NetworkScope) Label() string {
	return fmt.Sprintf("%s (%s) | %s", n.Name, n.ID, n.CIDRBlock)
}

// SubnetScope is a subnet resolved for display. Its CIDR block doubles as
// the subnet's node id.
type SubnetScope struct {
	ID        string
	CIDRBlock string
	Name      string
	Network   NetworkScope
}

// Label returns "name (id)".
func (s SubnetScope) Label() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.ID)
}

// =============================================================================
// Provider Records
// =============================================================================

// Tag is a key/value pair attached to a cloud resource.
type Tag struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Network is a VPC together with everything the builder needs from it.
type Network struct {
	ID                string            `json:"id" yaml:"id"`
	CIDRBlock         string            `json:"cidr_block" yaml:"cidr_block"`
	Tags              []Tag             `json:"tags,omitempty" yaml:"tags,omitempty"`
	InternetGateways  []InternetGateway `json:"internet_gateways,omitempty" yaml:"internet_gateways,omitempty"`
	RequestedPeerings []Peering         `json:"requested_peerings,omitempty" yaml:"requested_peerings,omitempty"`
	AcceptedPeerings  []Peering         `json:"accepted_peerings,omitempty" yaml:"accepted_peerings,omitempty"`
	Subnets           []Subnet          `json:"subnets,omitempty" yaml:"subnets,omitempty"`
	RouteTables       []RouteTable      `json:"route_tables,omitempty" yaml:"route_tables,omitempty"`
}

// InternetGateway is an internet gateway attached to a network.
type InternetGateway struct {
	ID string `json:"id" yaml:"id"`
}

// Subnet is an address-range partition of a network.
type Subnet struct {
	ID        string `json:"id" yaml:"id"`
	CIDRBlock string `json:"cidr_block" yaml:"cidr_block"`
	Tags      []Tag  `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// RouteTable is a set of routes plus the subnets it is associated with.
type RouteTable struct {
	ID           string        `json:"id" yaml:"id"`
	Associations []Association `json:"associations,omitempty" yaml:"associations,omitempty"`
	Routes       []Route       `json:"routes,omitempty" yaml:"routes,omitempty"`
}

// Association binds a route table to a subnet. SubnetID is empty for the
// main-table association.
type Association struct {
	SubnetID string `json:"subnet_id,omitempty" yaml:"subnet_id,omitempty"`
}

// Route is one entry of a route table. Every identifier field is optional;
// an empty string means the field is absent.
type Route struct {
	DestinationCIDRBlock        string `json:"destination_cidr_block" yaml:"destination_cidr_block"`
	GatewayID                   string `json:"gateway_id,omitempty" yaml:"gateway_id,omitempty"`
	NetworkInterfaceID          string `json:"network_interface_id,omitempty" yaml:"network_interface_id,omitempty"`
	NatGatewayID                string `json:"nat_gateway_id,omitempty" yaml:"nat_gateway_id,omitempty"`
	EgressOnlyInternetGatewayID string `json:"egress_only_internet_gateway_id,omitempty" yaml:"egress_only_internet_gateway_id,omitempty"`
	VpcPeeringConnectionID      string `json:"vpc_peering_connection_id,omitempty" yaml:"vpc_peering_connection_id,omitempty"`
}

// Peering is a VPC peering connection as listed by the provider.
type Peering struct {
	ID                 string        `json:"id" yaml:"id"`
	RequesterNetworkID string        `json:"requester_network_id" yaml:"requester_network_id"`
	AccepterNetworkID  string        `json:"accepter_network_id" yaml:"accepter_network_id"`
	Status             PeeringStatus `json:"status" yaml:"status"`
}

// PeeringStatus is the lifecycle state of a peering connection.
type PeeringStatus struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// StatusActive is the only peering status code that produces nodes and edges.
const StatusActive = "active"
