// Package schema validates node attribute maps against per-role CUE
// schemas. Known attributes are checked strictly; unknown attributes
// pass through so documents from newer builds remain loadable.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/conduit/internal/flow"
)

//go:embed node_schema.cue
var schemaSource string

var (
	compileOnce sync.Once
	schemaRoot  cue.Value
	compileErr  error
)

func compiled() (cue.Value, error) {
	compileOnce.Do(func() {
		ctx := cuecontext.New()
		schemaRoot = ctx.CompileString(schemaSource, cue.Filename("node_schema.cue"))
		compileErr = schemaRoot.Err()
	})
	return schemaRoot, compileErr
}

// ValidationError reports a node whose attributes violate its type's
// schema.
type ValidationError struct {
	NodeID  string
	Type    flow.NodeType
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("node %q (%s): %s", e.NodeID, e.Type, e.Message)
}

// ValidateNode checks a node's data map against the schema for its
// type. Node types without a declared schema pass: the schema gates
// known shapes, it does not enumerate the world.
func ValidateNode(n flow.Node) error {
	root, err := compiled()
	if err != nil {
		return fmt.Errorf("node schema failed to compile: %w", err)
	}

	def := root.LookupPath(cue.ParsePath("nodes." + string(n.Type)))
	if !def.Exists() {
		return nil
	}

	data := n.Data
	if data == nil {
		data = map[string]any{}
	}

	val := root.Context().Encode(data)
	if err := val.Err(); err != nil {
		return &ValidationError{NodeID: n.ID, Type: n.Type, Message: err.Error()}
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return &ValidationError{NodeID: n.ID, Type: n.Type, Message: err.Error()}
	}
	return nil
}

// ValidateSnapshot validates every node in the snapshot, collecting
// all violations instead of stopping at the first.
func ValidateSnapshot(snap flow.Snapshot) []error {
	var errs []error
	for _, n := range snap.Nodes {
		if err := ValidateNode(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
