package awsec2

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/matzehuels/vpcmap/pkg/topology"
)

// group assembles per-VPC records from region-wide listings. Resources
// that reference a VPC missing from vpcs are dropped.
func group(
	vpcs []types.Vpc,
	subnets []types.Subnet,
	tables []types.RouteTable,
	igws []types.InternetGateway,
	peerings []types.VpcPeeringConnection,
) []topology.Network {
	out := make([]topology.Network, len(vpcs))
	index := make(map[string]int, len(vpcs))
	for i, v := range vpcs {
		id := aws.ToString(v.VpcId)
		index[id] = i
		out[i] = topology.Network{
			ID:        id,
			CIDRBlock: aws.ToString(v.CidrBlock),
			Tags:      convertTags(v.Tags),
		}
	}

	for _, s := range subnets {
		if i, ok := index[aws.ToString(s.VpcId)]; ok {
			out[i].Subnets = append(out[i].Subnets, topology.Subnet{
				ID:        aws.ToString(s.SubnetId),
				CIDRBlock: aws.ToString(s.CidrBlock),
				Tags:      convertTags(s.Tags),
			})
		}
	}

	for _, rt := range tables {
		if i, ok := index[aws.ToString(rt.VpcId)]; ok {
			out[i].RouteTables = append(out[i].RouteTables, convertRouteTable(rt))
		}
	}

	for _, igw := range igws {
		for _, att := range igw.Attachments {
			if i, ok := index[aws.ToString(att.VpcId)]; ok {
				out[i].InternetGateways = append(out[i].InternetGateways, topology.InternetGateway{
					ID: aws.ToString(igw.InternetGatewayId),
				})
			}
		}
	}

	for _, pcx := range peerings {
		p := convertPeering(pcx)
		if i, ok := index[p.RequesterNetworkID]; ok {
			out[i].RequestedPeerings = append(out[i].RequestedPeerings, p)
		}
		if i, ok := index[p.AccepterNetworkID]; ok {
			out[i].AcceptedPeerings = append(out[i].AcceptedPeerings, p)
		}
	}
	return out
}

func convertTags(tags []types.Tag) []topology.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]topology.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, topology.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return out
}

func convertRouteTable(rt types.RouteTable) topology.RouteTable {
	out := topology.RouteTable{ID: aws.ToString(rt.RouteTableId)}
	for _, a := range rt.Associations {
		out.Associations = append(out.Associations, topology.Association{SubnetID: aws.ToString(a.SubnetId)})
	}
	for _, r := range rt.Routes {
		out.Routes = append(out.Routes, topology.Route{
			DestinationCIDRBlock:        aws.ToString(r.DestinationCidrBlock),
			GatewayID:                   aws.ToString(r.GatewayId),
			NetworkInterfaceID:          aws.ToString(r.NetworkInterfaceId),
			NatGatewayID:                aws.ToString(r.NatGatewayId),
			EgressOnlyInternetGatewayID: aws.ToString(r.EgressOnlyInternetGatewayId),
			VpcPeeringConnectionID:      aws.ToString(r.VpcPeeringConnectionId),
		})
	}
	return out
}

func convertPeering(pcx types.VpcPeeringConnection) topology.Peering {
	p := topology.Peering{ID: aws.ToString(pcx.VpcPeeringConnectionId)}
	if pcx.RequesterVpcInfo != nil {
		p.RequesterNetworkID = aws.ToString(pcx.RequesterVpcInfo.VpcId)
	}
	if pcx.AccepterVpcInfo != nil {
		p.AccepterNetworkID = aws.ToString(pcx.AccepterVpcInfo.VpcId)
	}
	if pcx.Status != nil {
		p.Status = topology.PeeringStatus{
			Code:    string(pcx.Status.Code),
			Message: aws.ToString(pcx.Status.Message),
		}
	}
	return p
}
