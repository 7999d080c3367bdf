package flow

import "fmt"

// ConnectionError is a connection rejection with an operator-facing
// reason. The reason distinguishes role problems from slot-type
// problems from self-loops because the caller surfaces it directly.
type ConnectionError struct {
	Reason string
}

func (e *ConnectionError) Error() string {
	return e.Reason
}

func rejectf(format string, args ...any) error {
	return &ConnectionError{Reason: fmt.Sprintf(format, args...)}
}

// Validate decides whether the candidate edge may be added to the
// graph described by nodes and edges. It returns nil on acceptance
// and a *ConnectionError on rejection.
//
// Rules are evaluated in order and the first failure wins:
//  1. self-loops are rejected
//  2. both endpoints must exist
//  3. configuration edges require a configuration-providing source
//     whose value matches the slot's declared kind
//  4. data-flow edges follow the role matrix: sources and in-path
//     utilities and processors may feed; processors, destinations,
//     and in-path utilities may receive
//
// Deterministic and side-effect free: identical inputs always produce
// the identical decision.
func Validate(candidate Edge, nodes []Node, edges []Edge) error {
	if candidate.Source == candidate.Target {
		return rejectf("self-loop: a node cannot connect to itself")
	}

	src, ok := findNode(nodes, candidate.Source)
	if !ok {
		return rejectf("unknown source node %q", candidate.Source)
	}
	dst, ok := findNode(nodes, candidate.Target)
	if !ok {
		return rejectf("unknown target node %q", candidate.Target)
	}

	if kind, isSlot := SlotKindFor(candidate.TargetHandle); isSlot {
		return validateConfigEdge(candidate, src, dst, kind)
	}

	return validateDataEdge(src, dst)
}

func validateConfigEdge(candidate Edge, src, dst Node, kind SlotKind) error {
	if !src.Type.IsConfigProvider() {
		return rejectf("wrong role: %s %q cannot feed configuration slot %q; only configuration nodes can",
			roleName(src.Type), src.ID, candidate.TargetHandle)
	}

	got, ok := valueKind(src.Data["value"])
	if !ok {
		return rejectf("wrong slot type: %q carries no usable value for %s slot %q",
			src.ID, kind, candidate.TargetHandle)
	}
	if got != kind {
		return rejectf("wrong slot type: slot %q on %q expects a %s value, got %s",
			candidate.TargetHandle, dst.ID, kind, got)
	}
	return nil
}

func validateDataEdge(src, dst Node) error {
	srcRole, ok := src.Type.Role()
	if !ok {
		return rejectf("wrong role: unknown node type %q", src.Type)
	}
	dstRole, ok := dst.Type.Role()
	if !ok {
		return rejectf("wrong role: unknown node type %q", dst.Type)
	}

	// Configuration providers never sit in the message path.
	if src.Type.IsConfigProvider() || dst.Type.IsConfigProvider() {
		return rejectf("wrong role: configuration node cannot carry message data")
	}

	switch srcRole {
	case RoleSource, RoleProcessor, RoleUtility:
		// may feed data
	default:
		return rejectf("wrong role: %s %q cannot be a data-flow source", srcRole, src.ID)
	}

	switch dstRole {
	case RoleProcessor, RoleDestination, RoleUtility:
		// may receive data
	default:
		return rejectf("wrong role: %s %q cannot be a data-flow target", dstRole, dst.ID)
	}

	return nil
}

func findNode(nodes []Node, id string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func roleName(t NodeType) string {
	if r, ok := t.Role(); ok {
		return r.String()
	}
	return "unknown"
}
