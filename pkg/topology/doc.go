// Package topology assembles cloud network resources into a nested graph model.
//
// The package holds the three pieces of logic with real invariants:
//
//   - [Classify] maps a route's identifier fields to node kinds and shapes.
//   - [Reconciler] merges the two one-sided views of each peering
//     connection into a single bidirectional edge.
//   - [Builder] walks account → region → network → subnet and produces a
//     [Model]: an ordered forest of clusters plus a flat edge list.
//
// # Data Flow
//
//	accounts × regions
//	         ↓
//	    [Provider].ListNetworks   (pkg/provider/awsec2, pkg/provider/snapshot)
//	         ↓
//	    [Builder].Build           (Classify + Reconciler)
//	         ↓
//	    *Model                    (pkg/render turns it into DOT/SVG/PNG/JSON)
//
// # Node Identity
//
// Subnets are keyed by their CIDR block, gateways and interfaces by their
// resource id, and peering endpoints by a role-qualified id such as
// "requester:pcx-1" or "accepter:pcx-1" (see [PeeringNodeID]). Node ids are
// unique across the model; every edge references existing nodes
// ([Model.Validate]).
//
// # Route Targets
//
// A route may populate more than one identifier field. Each field that
// passes its prefix test produces its own edge, so a route carrying both an
// ENI and a NAT gateway id yields two edges from the same subnet. Use
// [WithStrictTargets] to keep only the first target.
//
// # Peering
//
// A peering observation is eligible only when the connection is active and
// the visiting network is the one the connection names for that role. Each
// eligible observation creates its endpoint node; the edge is emitted when
// the second role of the same connection id is observed. A connection whose
// peer network is outside the run keeps a single dangling node.
//
// # Concurrency
//
// [WithConcurrency] fetches listings in parallel. Assembly stays sequential,
// so the model is identical to a sequential build. [Reconciler] is safe for
// concurrent use; [Model] is not.
package topology
