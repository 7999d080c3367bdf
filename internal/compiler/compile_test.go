package compiler

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conduit/internal/flow"
)

func simpleFlow() (flow.Snapshot, flow.Channel) {
	snap := flow.Snapshot{
		Nodes: []flow.Node{
			{ID: "n1", Type: flow.NodeHTTPListener, Data: map[string]any{"port": 8080, "path": "/intake"}},
			{ID: "cfg1", Type: flow.NodeConstant, Data: map[string]any{"value": 9090}},
			{ID: "n2", Type: flow.NodeTransformer, Data: map[string]any{}},
			{ID: "n3", Type: flow.NodeFileWriter, Data: map[string]any{"directory": "/var/out"}},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "n1", Target: "n2"},
			{ID: "e2", Source: "n2", Target: "n3"},
			{ID: "e3", Source: "cfg1", Target: "n1", TargetHandle: "port"},
		},
	}
	ch := flow.Channel{ChannelID: "chan-1", ChannelName: "adt-intake", MaxRetries: 2}
	return snap, ch
}

func TestCompile_Golden(t *testing.T) {
	snap, ch := simpleFlow()

	out, err := Compile(snap, ch)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "simple_flow", out)
}

// The same graph must compile to byte-identical output every time.
func TestCompile_Deterministic(t *testing.T) {
	snap, ch := simpleFlow()

	first, err := Compile(snap, ch)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		out, err := Compile(snap, ch)
		require.NoError(t, err)
		assert.Equal(t, first, out)
	}
}

// Insertion order of nodes and edges never shows through: connectors
// sort by id and links by endpoints.
func TestCompile_InsertionOrderIndependent(t *testing.T) {
	snap, ch := simpleFlow()
	want, err := Compile(snap, ch)
	require.NoError(t, err)

	shuffled := flow.Snapshot{
		Nodes: []flow.Node{snap.Nodes[3], snap.Nodes[1], snap.Nodes[0], snap.Nodes[2]},
		Edges: []flow.Edge{snap.Edges[2], snap.Edges[1], snap.Edges[0]},
	}
	got, err := Compile(shuffled, ch)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCompile_ConfigBindingOverridesDefault(t *testing.T) {
	snap, ch := simpleFlow()

	out, err := Compile(snap, ch)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"port":9090`, "bound slot value replaces the node attribute")
	assert.NotContains(t, string(out), `"port":8080`)
}

func TestCompile_ConfigProvidersExcludedFromConnectors(t *testing.T) {
	snap, ch := simpleFlow()

	out, err := Compile(snap, ch)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"cfg1"`)
	assert.NotContains(t, string(out), "constant")
}

func TestCompile_MissingChannelID(t *testing.T) {
	snap, _ := simpleFlow()
	_, err := Compile(snap, flow.Channel{ChannelName: "nameless"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel id")
}

func TestCompile_DanglingEdge(t *testing.T) {
	snap, ch := simpleFlow()
	snap.Edges = append(snap.Edges, flow.Edge{ID: "e9", Source: "n1", Target: "ghost"})

	_, err := Compile(snap, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestCompile_ValuelessConfigProvider(t *testing.T) {
	snap, ch := simpleFlow()
	for i := range snap.Nodes {
		if snap.Nodes[i].ID == "cfg1" {
			snap.Nodes[i].Data = map[string]any{}
		}
	}

	_, err := Compile(snap, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no value")
}

func TestCompile_CycleReachableFromSource(t *testing.T) {
	snap := flow.Snapshot{
		Nodes: []flow.Node{
			{ID: "src", Type: flow.NodeHTTPListener, Data: map[string]any{}},
			{ID: "p1", Type: flow.NodeTransformer, Data: map[string]any{}},
			{ID: "p2", Type: flow.NodeFilter, Data: map[string]any{}},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "src", Target: "p1"},
			{ID: "e2", Source: "p1", Target: "p2"},
			{ID: "e3", Source: "p2", Target: "p1"},
		},
	}

	_, err := Compile(snap, flow.Channel{ChannelID: "c1", ChannelName: "loopy"})
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, []string{"p1", "p2"}, cycleErr.NodeID, "error names a node on the cycle")
	require.GreaterOrEqual(t, len(cycleErr.Path), 3)
	assert.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1], "path closes the loop")
}

// A cycle in a region no source reaches is dead wiring, not an
// executable loop.
func TestCompile_UnreachableCycleTolerated(t *testing.T) {
	snap := flow.Snapshot{
		Nodes: []flow.Node{
			{ID: "src", Type: flow.NodeHTTPListener, Data: map[string]any{}},
			{ID: "dst", Type: flow.NodeFileWriter, Data: map[string]any{}},
			{ID: "p1", Type: flow.NodeTransformer, Data: map[string]any{}},
			{ID: "p2", Type: flow.NodeFilter, Data: map[string]any{}},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "src", Target: "dst"},
			{ID: "e2", Source: "p1", Target: "p2"},
			{ID: "e3", Source: "p2", Target: "p1"},
		},
	}

	_, err := Compile(snap, flow.Channel{ChannelID: "c1", ChannelName: "island"})
	assert.NoError(t, err)
}

// Configuration edges are not part of the message path and never form
// cycles.
func TestCompile_ConfigEdgesIgnoredByCycleCheck(t *testing.T) {
	snap := flow.Snapshot{
		Nodes: []flow.Node{
			{ID: "src", Type: flow.NodeHTTPListener, Data: map[string]any{}},
			{ID: "p1", Type: flow.NodeTransformer, Data: map[string]any{}},
			{ID: "cfg", Type: flow.NodeConstant, Data: map[string]any{"value": 30000}},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "src", Target: "p1"},
			{ID: "e2", Source: "cfg", Target: "src", TargetHandle: "timeoutMs"},
		},
	}

	_, err := Compile(snap, flow.Channel{ChannelID: "c1", ChannelName: "cfgd"})
	assert.NoError(t, err)
}

func TestCompile_ErrorDestinationIncludedWhenSet(t *testing.T) {
	snap, ch := simpleFlow()
	ch.ErrorDestinationID = "n3"

	out, err := Compile(snap, ch)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"error_destination_id":"n3"`)
}
