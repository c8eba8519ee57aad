package topology

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateNodeID is returned by [Model.Validate] when two clusters
	// hold a node with the same id.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownEdgeEndpoint is returned by [Model.Validate] when an edge
	// references a node that is not in the model.
	ErrUnknownEdgeEndpoint = errors.New("unknown edge endpoint")
)

// ClusterKind is the containment level of a cluster.
type ClusterKind string

const (
	ClusterAccount ClusterKind = "account"
	ClusterRegion  ClusterKind = "region"
	ClusterNetwork ClusterKind = "network"
	ClusterSubnet  ClusterKind = "subnet"
)

// NodeKindSubnet is the [Node] kind of subnet CIDR nodes. Other nodes use
// the [TargetKind] string of what they represent.
const NodeKindSubnet = "subnet"

// DefaultClusterColor is the outline color of every cluster.
const DefaultClusterColor = "black"

// Cluster is a labeled, nested grouping: account → region → network → subnet.
type Cluster struct {
	ID       string      `json:"id" yaml:"id"`
	Kind     ClusterKind `json:"kind" yaml:"kind"`
	Label    string      `json:"label" yaml:"label"`
	Color    string      `json:"color" yaml:"color"`
	Clusters []*Cluster  `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Nodes    []*Node     `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// NewCluster returns an empty cluster with the default color.
func NewCluster(kind ClusterKind, id, label string) *Cluster {
	return &Cluster{ID: id, Kind: kind, Label: label, Color: DefaultClusterColor}
}

// Attach appends child to c's nested clusters.
func (c *Cluster) Attach(child *Cluster) {
	c.Clusters = append(c.Clusters, child)
}

// Node is a graph vertex: a subnet CIDR, a gateway, an interface or a
// peering endpoint.
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Kind  string `json:"kind" yaml:"kind"`
	Shape Shape  `json:"shape" yaml:"shape"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge connects two nodes. Route edges are directed from a subnet to its
// target and labeled with the destination CIDR; peering edges are
// bidirectional and unlabeled.
type Edge struct {
	From          string `json:"from" yaml:"from"`
	To            string `json:"to" yaml:"to"`
	Label         string `json:"label,omitempty" yaml:"label,omitempty"`
	Bidirectional bool   `json:"bidirectional,omitempty" yaml:"bidirectional,omitempty"`
}

// Model is the assembled topology: an ordered forest of clusters plus a
// flat edge list spanning them.
//
// Node ids are unique across the whole model: adding a node whose id is
// already present returns the existing node. Exact duplicate edges are
// dropped. A Model is not safe for concurrent writes.
type Model struct {
	Clusters []*Cluster `json:"clusters" yaml:"clusters"`
	Edges    []Edge     `json:"edges" yaml:"edges"`

	nodes map[string]*Node
	edges map[Edge]struct{}
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		nodes: make(map[string]*Node),
		edges: make(map[Edge]struct{}),
	}
}

// AddCluster appends a top-level cluster.
func (m *Model) AddCluster(c *Cluster) {
	m.Clusters = append(m.Clusters, c)
}

// AddNode places n in cluster c unless a node with the same id already
// exists anywhere in the model. It returns the node now registered under
// the id and whether it was newly created.
func (m *Model) AddNode(c *Cluster, n Node) (*Node, bool) {
	m.ensureIndex()
	if existing, ok := m.nodes[n.ID]; ok {
		return existing, false
	}
	node := &n
	m.nodes[n.ID] = node
	c.Nodes = append(c.Nodes, node)
	return node, true
}

// AddEdge appends e unless an identical edge is already present.
func (m *Model) AddEdge(e Edge) bool {
	m.ensureIndex()
	if _, ok := m.edges[e]; ok {
		return false
	}
	m.edges[e] = struct{}{}
	m.Edges = append(m.Edges, e)
	return true
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (*Node, bool) {
	m.ensureIndex()
	n, ok := m.nodes[id]
	return n, ok
}

// Nodes returns every node in cluster order (depth first).
func (m *Model) Nodes() []*Node {
	var out []*Node
	for _, c := range m.Clusters {
		out = collectNodes(c, out)
	}
	return out
}

func collectNodes(c *Cluster, out []*Node) []*Node {
	out = append(out, c.Nodes...)
	for _, child := range c.Clusters {
		out = collectNodes(child, out)
	}
	return out
}

// NodeCount returns the number of distinct node ids.
func (m *Model) NodeCount() int {
	m.ensureIndex()
	return len(m.nodes)
}

// EdgeCount returns the number of edges.
func (m *Model) EdgeCount() int { return len(m.Edges) }

// Validate checks that node ids are unique and that every edge references
// existing nodes.
func (m *Model) Validate() error {
	ids := make(map[string]struct{})
	for _, n := range m.Nodes() {
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, e := range m.Edges {
		if _, ok := ids[e.From]; !ok {
			return fmt.Errorf("%w: %s -> %s (from)", ErrUnknownEdgeEndpoint, e.From, e.To)
		}
		if _, ok := ids[e.To]; !ok {
			return fmt.Errorf("%w: %s -> %s (to)", ErrUnknownEdgeEndpoint, e.From, e.To)
		}
	}
	return nil
}

// ensureIndex rebuilds the lookup maps for models decoded from JSON or YAML.
func (m *Model) ensureIndex() {
	if m.nodes != nil {
		return
	}
	m.nodes = make(map[string]*Node)
	m.edges = make(map[Edge]struct{}, len(m.Edges))
	for _, n := range m.Nodes() {
		if _, ok := m.nodes[n.ID]; !ok {
			m.nodes[n.ID] = n
		}
	}
	for _, e := range m.Edges {
		m.edges[e] = struct{}{}
	}
}
