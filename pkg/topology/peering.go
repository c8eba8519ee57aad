package topology

import (
	"slices"
	"sync"
)

// Role is the side of a peering connection a network plays.
type Role int

const (
	RoleRequester Role = iota
	RoleAccepter
)

func (r Role) String() string {
	if r == RoleAccepter {
		return "accepter"
	}
	return "requester"
}

// PeeringNodeID returns the role-qualified node id for a connection,
// e.g. "requester:pcx-1".
func PeeringNodeID(role Role, connectionID string) string {
	return role.String() + ":" + connectionID
}

// PeeringObservation is one side of a peering connection, seen while
// visiting ObserverNetworkID. OwnerNetworkID is the network the connection
// record names for Role.
type PeeringObservation struct {
	ConnectionID      string
	Role              Role
	ObserverNetworkID string
	OwnerNetworkID    string
	StatusCode        string
}

// ObserveRequested builds the observation for a peering found in a
// network's requested list.
func ObserveRequested(networkID string, p Peering) PeeringObservation {
	return PeeringObservation{
		ConnectionID:      p.ID,
		Role:              RoleRequester,
		ObserverNetworkID: networkID,
		OwnerNetworkID:    p.RequesterNetworkID,
		StatusCode:        p.Status.Code,
	}
}

// ObserveAccepted builds the observation for a peering found in a
// network's accepted list.
func ObserveAccepted(networkID string, p Peering) PeeringObservation {
	return PeeringObservation{
		ConnectionID:      p.ID,
		Role:              RoleAccepter,
		ObserverNetworkID: networkID,
		OwnerNetworkID:    p.AccepterNetworkID,
		StatusCode:        p.Status.Code,
	}
}

// Eligible reports whether the observation is active and made from the
// network that owns its role. Mirror listings inside the other party's
// network fail the ownership test.
func (o PeeringObservation) Eligible() bool {
	return o.StatusCode == StatusActive && o.ObserverNetworkID == o.OwnerNetworkID
}

// PeeringEdge is the reconciled, bidirectional edge of one connection.
type PeeringEdge struct {
	ConnectionID    string
	RequesterNodeID string
	AccepterNodeID  string
}

// Emission is the result of one [Reconciler.Observe] call.
// NodeID is empty when the observation was not eligible. Edge is non-nil
// exactly once per connection id: on the observation that completes the
// pair.
type Emission struct {
	NodeID string
	Edge   *PeeringEdge
}

// Reconciler collapses the two one-sided observations of each peering
// connection into a single edge. Correlation uses only the connection id,
// so observations may arrive in any order and from any account or region.
//
// A Reconciler is safe for concurrent use and holds state for one build.
type Reconciler struct {
	mu      sync.Mutex
	order   []string
	seen    map[string]*peeringSides
	emitted int
}

type peeringSides struct {
	requester bool
	accepter  bool
	edge      bool
}

// NewReconciler returns an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{seen: make(map[string]*peeringSides)}
}

// Observe records one observation and reports which node to create and
// whether the connection's edge is now complete.
func (r *Reconciler) Observe(obs PeeringObservation) Emission {
	if !obs.Eligible() {
		return Emission{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sides, ok := r.seen[obs.ConnectionID]
	if !ok {
		sides = &peeringSides{}
		r.seen[obs.ConnectionID] = sides
		r.order = append(r.order, obs.ConnectionID)
	}
	if obs.Role == RoleAccepter {
		sides.accepter = true
	} else {
		sides.requester = true
	}

	em := Emission{NodeID: PeeringNodeID(obs.Role, obs.ConnectionID)}
	if sides.requester && sides.accepter && !sides.edge {
		sides.edge = true
		r.emitted++
		em.Edge = &PeeringEdge{
			ConnectionID:    obs.ConnectionID,
			RequesterNodeID: PeeringNodeID(RoleRequester, obs.ConnectionID),
			AccepterNodeID:  PeeringNodeID(RoleAccepter, obs.ConnectionID),
		}
	}
	return em
}

// Dangling returns the connection ids observed from only one side, in
// first-observation order.
func (r *Reconciler) Dangling() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, id := range r.order {
		if !r.seen[id].edge {
			out = append(out, id)
		}
	}
	return out
}

// Edges returns the number of peering edges emitted so far.
func (r *Reconciler) Edges() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emitted
}

// Connections returns every eligible connection id, in first-observation order.
func (r *Reconciler) Connections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}
