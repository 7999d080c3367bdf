package flow

import (
	"log/slog"
	"sync"
)

// Store owns the authoritative node and edge sets for one workflow,
// plus the channel metadata and the deploy/run status container.
//
// Thread-safety model:
//   - All exported methods are safe from any goroutine.
//   - Structural invariants hold after every mutation: edge endpoints
//     always reference existing nodes, ids are unique, and deleting a
//     node drops every edge touching it.
//   - Deploy and run state are exposed here for reads but are only
//     written by the deploy orchestrator, always as whole-value
//     replaces.
type Store struct {
	mu      sync.Mutex
	nodes   []Node
	edges   []Edge
	channel Channel
	deploy  map[string]DeployState
	run     RunState
	idGen   IDGenerator
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithIDGenerator overrides the id generator. Tests use
// NewFixedGenerator for deterministic ids.
func WithIDGenerator(g IDGenerator) StoreOption {
	return func(s *Store) {
		s.idGen = g
	}
}

// NewStore creates an empty store with a freshly generated channel id
// and offline run state.
func NewStore(channelName string, opts ...StoreOption) *Store {
	s := &Store{
		deploy: make(map[string]DeployState),
		run:    RunState{Status: RunOffline},
		idGen:  UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.channel = Channel{
		ChannelID:   s.idGen.Generate(),
		ChannelName: channelName,
	}
	return s
}

// AddNode creates a node of the given type with role-appropriate
// default attributes and returns its fresh id. Never fails.
func (s *Store) AddNode(t NodeType, pos Position) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := Node{
		ID:       s.idGen.Generate(),
		Type:     t,
		Position: pos,
		Data:     defaultData(t),
	}
	s.nodes = append(s.nodes, n)

	slog.Debug("node added", "id", n.ID, "type", n.Type)
	return n.ID
}

// UpdateNodeField sets one attribute on a node. A missing id is a
// no-op, not an error: the caller may be racing a delete.
func (s *Store) UpdateNodeField(id, field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.nodes {
		if s.nodes[i].ID == id {
			if s.nodes[i].Data == nil {
				s.nodes[i].Data = make(map[string]any)
			}
			s.nodes[i].Data[field] = value
			return
		}
	}
}

// DeleteNode removes the node and every edge touching it. No-op if
// the id is absent.
func (s *Store) DeleteNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeNodeLocked(id) {
		return
	}
	s.edges = filterEdges(s.edges, func(e Edge) bool {
		return e.Source != id && e.Target != id
	})
	slog.Debug("node deleted", "id", id)
}

// DeleteNodeAndReconnect removes the node and bridges every
// (incoming, outgoing) edge pair across the gap: the new edges keep
// the incoming side's source and source handle and the outgoing
// side's target and target handle. With zero incoming or zero
// outgoing edges no bridges are created and the dangling edges are
// simply dropped.
//
// This is the graph-surgery primitive that lets an operator remove an
// intermediate stage without re-wiring every path by hand.
func (s *Store) DeleteNodeAndReconnect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeNodeLocked(id) {
		return
	}

	var incoming, outgoing []Edge
	for _, e := range s.edges {
		switch {
		case e.Target == id && e.Source != id:
			incoming = append(incoming, e)
		case e.Source == id && e.Target != id:
			outgoing = append(outgoing, e)
		}
	}

	s.edges = filterEdges(s.edges, func(e Edge) bool {
		return e.Source != id && e.Target != id
	})

	for _, in := range incoming {
		for _, out := range outgoing {
			bridge := Edge{
				ID:           s.idGen.Generate(),
				Source:       in.Source,
				SourceHandle: in.SourceHandle,
				Target:       out.Target,
				TargetHandle: out.TargetHandle,
			}
			s.edges = append(s.edges, bridge)
		}
	}

	slog.Debug("node deleted with reconnect",
		"id", id,
		"incoming", len(incoming),
		"outgoing", len(outgoing),
	)
}

// DuplicateNode clones a node's type and data under a new id at an
// offset position. Edges are not duplicated. Returns the new id, or
// "" if the source node does not exist.
func (s *Store) DuplicateNode(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.nodes {
		if n.ID == id {
			dup := n.Clone()
			dup.ID = s.idGen.Generate()
			dup.Position.X += duplicateOffset
			dup.Position.Y += duplicateOffset
			s.nodes = append(s.nodes, dup)
			return dup.ID
		}
	}
	return ""
}

// Connect validates the candidate edge and commits it on acceptance.
// Re-adding an edge with identical endpoints is an accepted no-op. A
// configuration edge into an occupied slot replaces the previous
// binding. On rejection the graph is left unchanged and the typed
// *ConnectionError carries the reason for the operator.
func (s *Store) Connect(candidate Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Validate(candidate, s.nodes, s.edges); err != nil {
		slog.Debug("connection rejected", "source", candidate.Source, "target", candidate.Target, "error", err)
		return err
	}

	for _, e := range s.edges {
		if e.SameEndpoints(candidate) {
			return nil
		}
	}

	if candidate.ID == "" {
		candidate.ID = s.idGen.Generate()
	}

	if candidate.IsConfig() {
		// One binding per slot: the new wiring wins.
		s.edges = filterEdges(s.edges, func(e Edge) bool {
			return !(e.Target == candidate.Target && e.TargetHandle == candidate.TargetHandle)
		})
	}

	s.edges = append(s.edges, candidate)
	return nil
}

// DeleteEdge removes one edge by id. No-op if absent.
func (s *Store) DeleteEdge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges = filterEdges(s.edges, func(e Edge) bool {
		return e.ID != id
	})
}

// Snapshot returns a deep copy of the node and edge sets. In-flight
// work holding a snapshot never observes later edits.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Nodes: make([]Node, len(s.nodes)),
		Edges: make([]Edge, len(s.edges)),
	}
	for i, n := range s.nodes {
		snap.Nodes[i] = n.Clone()
	}
	copy(snap.Edges, s.edges)
	return snap
}

// LoadSnapshot replaces the graph and channel wholesale, as when a
// persisted flow is loaded or imported. Deploy and run state are
// reset: a freshly loaded flow makes no claim about remote reality.
func (s *Store) LoadSnapshot(snap Snapshot, ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make([]Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		s.nodes[i] = n.Clone()
	}
	s.edges = make([]Edge, len(snap.Edges))
	copy(s.edges, snap.Edges)
	s.channel = ch
	s.deploy = make(map[string]DeployState)
	s.run = RunState{Status: RunOffline}
}

// Channel returns the channel metadata.
func (s *Store) Channel() Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// SetChannel replaces the channel metadata.
func (s *Store) SetChannel(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ch
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.nodes {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return Node{}, false
}

// Edges returns a copy of the edge set.
func (s *Store) Edges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// DeployState returns the deploy record for a target key, defaulting
// to idle for keys that have never deployed.
func (s *Store) DeployState(targetKey string) DeployState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.deploy[targetKey]; ok {
		return st
	}
	return DeployState{Status: DeployIdle}
}

// SetDeployState replaces the deploy record for a target key. Called
// only by the deploy orchestrator.
func (s *Store) SetDeployState(targetKey string, st DeployState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deploy[targetKey] = st
}

// RunState returns the channel run state.
func (s *Store) RunState() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// SetRunState replaces the channel run state. Called only by the
// deploy orchestrator.
func (s *Store) SetRunState(rs RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = rs
}

// removeNodeLocked deletes the node entry, reporting whether it
// existed. Caller holds s.mu.
func (s *Store) removeNodeLocked(id string) bool {
	for i, n := range s.nodes {
		if n.ID == id {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			return true
		}
	}
	return false
}

// filterEdges returns the edges for which keep is true, preserving
// order.
func filterEdges(edges []Edge, keep func(Edge) bool) []Edge {
	out := edges[:0:0]
	for _, e := range edges {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
