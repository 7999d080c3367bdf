package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/conduit/internal/flow"
)

// CycleError reports a data-flow cycle reachable from a source node.
// The engine executes a channel as a single acyclic pass per message,
// so such a graph can never run and compilation refuses it.
type CycleError struct {
	NodeID string   // a node on the cycle
	Path   []string // cycle path, first and last entries equal
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("data-flow cycle through node %q: %s",
		e.NodeID, strings.Join(e.Path, " -> "))
}

// detectCycle walks the data-flow edges from every source node and
// returns a *CycleError for the first back edge found. Configuration
// edges are not part of the message path and are ignored. Cycles in
// regions unreachable from any source are tolerated: they are dead
// wiring, not an executable loop.
func detectCycle(snap flow.Snapshot) error {
	adj := make(map[string][]string)
	for _, e := range snap.Edges {
		if e.IsConfig() {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int)
	var stack []string

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		state[id] = inStack
		stack = append(stack, id)

		for _, next := range adj[id] {
			switch state[next] {
			case inStack:
				// Back edge: slice the stack from the first
				// occurrence of next to close the loop.
				var path []string
				for i, v := range stack {
					if v == next {
						path = append(path, stack[i:]...)
						break
					}
				}
				path = append(path, next)
				return &CycleError{NodeID: next, Path: path}
			case unvisited:
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, n := range snap.Nodes {
		role, ok := n.Type.Role()
		if !ok || role != flow.RoleSource {
			continue
		}
		if state[n.ID] == unvisited {
			if err := visit(n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
