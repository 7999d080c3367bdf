package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/conduit/internal/flow"
	"github.com/roach88/conduit/internal/persist"
)

// loadFlowFile reads a flow document from disk and restores it,
// applying the channel-id repair rule.
func loadFlowFile(path string) (flow.Snapshot, flow.Channel, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return flow.Snapshot{}, flow.Channel{}, &ExitError{
			Code:    ExitCommandError,
			Message: fmt.Sprintf("flow file not found: %s", path),
		}
	}
	if err != nil {
		return flow.Snapshot{}, flow.Channel{}, &ExitError{
			Code:    ExitCommandError,
			Message: fmt.Sprintf("read flow file %s", path),
			Err:     err,
		}
	}

	doc, err := persist.Decode(data)
	if err != nil {
		return flow.Snapshot{}, flow.Channel{}, &ExitError{
			Code:    ExitCommandError,
			Message: fmt.Sprintf("parse flow file %s", path),
			Err:     err,
		}
	}

	snap, ch := persist.Restore(doc)
	return snap, ch, nil
}

// checkStructure verifies the loaded graph's structural invariants:
// unique ids and resolvable edge endpoints. The in-memory store
// maintains these by construction, but a hand-edited file can violate
// them.
func checkStructure(snap flow.Snapshot) []error {
	var errs []error

	seenNodes := make(map[string]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if seenNodes[n.ID] {
			errs = append(errs, fmt.Errorf("duplicate node id %q", n.ID))
		}
		seenNodes[n.ID] = true
	}

	seenEdges := make(map[string]bool, len(snap.Edges))
	for _, e := range snap.Edges {
		if e.ID != "" && seenEdges[e.ID] {
			errs = append(errs, fmt.Errorf("duplicate edge id %q", e.ID))
		}
		seenEdges[e.ID] = true

		if !seenNodes[e.Source] {
			errs = append(errs, fmt.Errorf("edge %q references unknown source node %q", e.ID, e.Source))
		}
		if !seenNodes[e.Target] {
			errs = append(errs, fmt.Errorf("edge %q references unknown target node %q", e.ID, e.Target))
		}
	}

	return errs
}
