package topology

import "strings"

// TargetKind is the kind of node a route points at.
type TargetKind int

const (
	KindNone TargetKind = iota
	KindInternetGateway
	KindVirtualPrivateGateway
	KindNetworkInterface
	KindNatGateway
	KindEgressOnlyInternetGateway
	KindPeeringConnection
)

var kindNames = map[TargetKind]string{
	KindNone:                      "none",
	KindInternetGateway:           "internet-gateway",
	KindVirtualPrivateGateway:     "virtual-private-gateway",
	KindNetworkInterface:          "network-interface",
	KindNatGateway:                "nat-gateway",
	KindEgressOnlyInternetGateway: "egress-only-internet-gateway",
	KindPeeringConnection:         "peering-connection",
}

func (k TargetKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Shape is a node's display shape. Values are Graphviz shape names.
type Shape string

const (
	ShapeLargeDiamond  Shape = "Mdiamond"
	ShapeDoubleCircle  Shape = "doublecircle"
	ShapeCircle        Shape = "circle"
	ShapeTripleOctagon Shape = "tripleoctagon"
	ShapeSubnet        Shape = "ellipse"
)

// Identifier prefixes recognized by [Classify].
const (
	PrefixInternetGateway           = "igw-"
	PrefixVirtualPrivateGateway     = "vgw-"
	PrefixNetworkInterface          = "eni-"
	PrefixNatGateway                = "ngw-"
	PrefixEgressOnlyInternetGateway = "eigw-"
	PrefixPeeringConnection         = "pcx-"
)

// RouteTarget is the resolved destination of a route. For peering
// connections the role-qualified node id is resolved by the builder, so ID
// holds the bare connection id.
type RouteTarget struct {
	Kind  TargetKind
	ID    string
	Shape Shape
}

// IsNone reports whether the target is unclassified.
func (t RouteTarget) IsNone() bool { return t.Kind == KindNone }

// RouteEdge is one edge candidate from a subnet to a route target.
type RouteEdge struct {
	SourceSubnetCIDR string
	Target           RouteTarget
	DestinationCIDR  string
}

// RouteEdges classifies route and pairs every target with the subnet it
// leaves from. The order follows [Classify].
func RouteEdges(sourceSubnetCIDR string, route Route) []RouteEdge {
	targets := Classify(route)
	if len(targets) == 0 {
		return nil
	}
	out := make([]RouteEdge, len(targets))
	for i, t := range targets {
		out[i] = RouteEdge{SourceSubnetCIDR: sourceSubnetCIDR, Target: t, DestinationCIDR: route.DestinationCIDRBlock}
	}
	return out
}

// Classify maps a route's identifier fields to route targets.
//
// Identifiers are matched by prefix, not by field, because the gateway field
// carries both internet and virtual private gateways. Every field that passes
// its prefix test yields its own target, in the order igw, vgw, eni, ngw,
// eigw, pcx. A route that matches nothing yields no targets.
func Classify(r Route) []RouteTarget {
	var out []RouteTarget
	if strings.HasPrefix(r.GatewayID, PrefixInternetGateway) {
		out = append(out, RouteTarget{Kind: KindInternetGateway, ID: r.GatewayID, Shape: ShapeLargeDiamond})
	}
	if strings.HasPrefix(r.GatewayID, PrefixVirtualPrivateGateway) {
		out = append(out, RouteTarget{Kind: KindVirtualPrivateGateway, ID: r.GatewayID, Shape: ShapeDoubleCircle})
	}
	if strings.HasPrefix(r.NetworkInterfaceID, PrefixNetworkInterface) {
		out = append(out, RouteTarget{Kind: KindNetworkInterface, ID: r.NetworkInterfaceID, Shape: ShapeCircle})
	}
	if strings.HasPrefix(r.NatGatewayID, PrefixNatGateway) {
		out = append(out, RouteTarget{Kind: KindNatGateway, ID: r.NatGatewayID, Shape: ShapeCircle})
	}
	if strings.HasPrefix(r.EgressOnlyInternetGatewayID, PrefixEgressOnlyInternetGateway) {
		out = append(out, RouteTarget{Kind: KindEgressOnlyInternetGateway, ID: r.EgressOnlyInternetGatewayID, Shape: ShapeCircle})
	}
	if strings.HasPrefix(r.VpcPeeringConnectionID, PrefixPeeringConnection) {
		out = append(out, RouteTarget{Kind: KindPeeringConnection, ID: r.VpcPeeringConnectionID, Shape: ShapeTripleOctagon})
	}
	return out
}

// Primary returns the first target [Classify] would produce, or a
// [KindNone] target when the route matches nothing.
func Primary(r Route) RouteTarget {
	if targets := Classify(r); len(targets) > 0 {
		return targets[0]
	}
	return RouteTarget{Kind: KindNone}
}
