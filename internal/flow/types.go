package flow

// NodeType identifies the pipeline stage a node represents.
// The type determines the node's role in the data path and the
// default attribute set it is created with.
type NodeType string

const (
	// Sources feed messages into the pipeline.
	NodeHTTPListener NodeType = "httpListener"
	NodeTCPListener  NodeType = "tcpListener"
	NodeFileReader   NodeType = "fileReader"

	// Processors transform or filter messages in flight.
	NodeTransformer NodeType = "transformer"
	NodeFilter      NodeType = "filter"
	NodeHL7Decoder  NodeType = "hl7Decoder"

	// Destinations deliver messages out of the pipeline.
	NodeHTTPSender     NodeType = "httpSender"
	NodeTCPSender      NodeType = "tcpSender"
	NodeFileWriter     NodeType = "fileWriter"
	NodeDatabaseWriter NodeType = "databaseWriter"

	// Utilities. Constant provides configuration values to other
	// nodes and never appears in an executable data path. Delay is
	// an in-path utility stage.
	NodeConstant NodeType = "constant"
	NodeDelay    NodeType = "delay"
)

// Role classifies a node type's position in the data path.
type Role int

const (
	RoleSource Role = iota + 1
	RoleProcessor
	RoleDestination
	RoleUtility
)

// String returns the role name as shown to operators.
func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleProcessor:
		return "processor"
	case RoleDestination:
		return "destination"
	case RoleUtility:
		return "utility"
	default:
		return "unknown"
	}
}

var nodeRoles = map[NodeType]Role{
	NodeHTTPListener:   RoleSource,
	NodeTCPListener:    RoleSource,
	NodeFileReader:     RoleSource,
	NodeTransformer:    RoleProcessor,
	NodeFilter:         RoleProcessor,
	NodeHL7Decoder:     RoleProcessor,
	NodeHTTPSender:     RoleDestination,
	NodeTCPSender:      RoleDestination,
	NodeFileWriter:     RoleDestination,
	NodeDatabaseWriter: RoleDestination,
	NodeConstant:       RoleUtility,
	NodeDelay:          RoleUtility,
}

// Role returns the role for a node type. The second return value is
// false for unrecognized types.
func (t NodeType) Role() (Role, bool) {
	r, ok := nodeRoles[t]
	return r, ok
}

// IsConfigProvider reports whether nodes of this type supply
// configuration values through configuration edges rather than
// participating in the message path.
func (t NodeType) IsConfigProvider() bool {
	return t == NodeConstant
}

// Position is the node's canvas placement. Presentation-only: it is
// carried through persistence but never affects validation or
// compilation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a vertex in the workflow graph. Identity is immutable after
// creation; Data is mutable field by field.
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// Clone returns a deep copy of the node. Data values are copied one
// level deep, which covers the flat attribute maps nodes carry.
func (n Node) Clone() Node {
	c := n
	c.Data = make(map[string]any, len(n.Data))
	for k, v := range n.Data {
		c.Data[k] = v
	}
	return c
}

// Edge is a directed connection between two node handles. It carries
// either message data or, when TargetHandle names a configuration
// slot, a configuration value.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// SameEndpoints reports whether two edges connect the same ordered
// handle pair. Edges have no identity beyond their endpoints.
func (e Edge) SameEndpoints(o Edge) bool {
	return e.Source == o.Source && e.SourceHandle == o.SourceHandle &&
		e.Target == o.Target && e.TargetHandle == o.TargetHandle
}

// IsConfig reports whether the edge targets a recognized
// configuration slot.
func (e Edge) IsConfig() bool {
	_, ok := SlotKindFor(e.TargetHandle)
	return ok
}

// Channel is the deployable identity of a flow.
type Channel struct {
	ChannelID          string `json:"channelId"`
	ChannelName        string `json:"channelName"`
	ErrorDestinationID string `json:"errorDestinationId,omitempty"`
	MaxRetries         int    `json:"maxRetries"`
}

// Snapshot is an isolated copy of the graph taken for compilation.
// Edits made to the store after the snapshot is taken are not visible
// through it.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// NodeByID returns the snapshot node with the given id.
func (s Snapshot) NodeByID(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
