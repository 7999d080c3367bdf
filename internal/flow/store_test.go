package flow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore builds a store with predictable ids: "ch" for the
// channel, then id-1, id-2, ... for nodes and edges.
func newTestStore(t *testing.T, n int) *Store {
	t.Helper()
	ids := []string{"ch"}
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("id-%d", i))
	}
	return NewStore("test-channel", WithIDGenerator(NewFixedGenerator(ids...)))
}

func TestStore_AddNode(t *testing.T) {
	s := newTestStore(t, 2)

	id := s.AddNode(NodeHTTPListener, Position{X: 10, Y: 20})
	require.NotEmpty(t, id)

	n, ok := s.Node(id)
	require.True(t, ok)
	assert.Equal(t, NodeHTTPListener, n.Type)
	assert.Equal(t, 10.0, n.Position.X)
	assert.Equal(t, 8080, n.Data["port"], "listener gets a default port")
	assert.Equal(t, 1, s.NodeCount())
}

func TestStore_UpdateNodeField(t *testing.T) {
	s := newTestStore(t, 2)
	id := s.AddNode(NodeFileWriter, Position{})

	s.UpdateNodeField(id, "directory", "/var/out")

	n, _ := s.Node(id)
	assert.Equal(t, "/var/out", n.Data["directory"])
}

func TestStore_UpdateNodeField_MissingIDIsNoop(t *testing.T) {
	s := newTestStore(t, 2)
	s.AddNode(NodeFilter, Position{})

	// Must not panic or create a node.
	s.UpdateNodeField("nope", "language", "javascript")
	assert.Equal(t, 1, s.NodeCount())
}

func TestStore_DeleteNode_RemovesTouchingEdges(t *testing.T) {
	s := newTestStore(t, 6)
	a := s.AddNode(NodeHTTPListener, Position{})
	b := s.AddNode(NodeTransformer, Position{})
	c := s.AddNode(NodeFileWriter, Position{})
	require.NoError(t, s.Connect(Edge{Source: a, Target: b}))
	require.NoError(t, s.Connect(Edge{Source: b, Target: c}))

	s.DeleteNode(b)

	assert.Equal(t, 2, s.NodeCount())
	assert.Empty(t, s.Edges(), "every edge touching the node is dropped")
}

func TestStore_DeleteNodeAndReconnect(t *testing.T) {
	s := newTestStore(t, 16)
	a := s.AddNode(NodeHTTPListener, Position{})
	b := s.AddNode(NodeTCPListener, Position{})
	mid := s.AddNode(NodeTransformer, Position{})
	x := s.AddNode(NodeFileWriter, Position{})
	y := s.AddNode(NodeHTTPSender, Position{})

	require.NoError(t, s.Connect(Edge{Source: a, SourceHandle: "out", Target: mid}))
	require.NoError(t, s.Connect(Edge{Source: b, Target: mid}))
	require.NoError(t, s.Connect(Edge{Source: mid, Target: x, TargetHandle: "in"}))
	require.NoError(t, s.Connect(Edge{Source: mid, Target: y}))

	s.DeleteNodeAndReconnect(mid)

	edges := s.Edges()
	require.Len(t, edges, 4, "2 incoming x 2 outgoing bridges")

	type pair struct{ src, sh, dst, th string }
	got := make(map[pair]bool)
	for _, e := range edges {
		got[pair{e.Source, e.SourceHandle, e.Target, e.TargetHandle}] = true
	}
	assert.True(t, got[pair{a, "out", x, "in"}], "bridge keeps incoming handle and outgoing handle")
	assert.True(t, got[pair{a, "out", y, ""}])
	assert.True(t, got[pair{b, "", x, "in"}])
	assert.True(t, got[pair{b, "", y, ""}])
}

func TestStore_DeleteNodeAndReconnect_NoOutgoing(t *testing.T) {
	s := newTestStore(t, 8)
	a := s.AddNode(NodeHTTPListener, Position{})
	mid := s.AddNode(NodeTransformer, Position{})
	require.NoError(t, s.Connect(Edge{Source: a, Target: mid}))

	s.DeleteNodeAndReconnect(mid)

	assert.Empty(t, s.Edges(), "no bridges without outgoing edges")
	assert.Equal(t, 1, s.NodeCount())
}

func TestStore_DeleteNodeAndReconnect_NoIncoming(t *testing.T) {
	s := newTestStore(t, 8)
	mid := s.AddNode(NodeTransformer, Position{})
	x := s.AddNode(NodeFileWriter, Position{})
	require.NoError(t, s.Connect(Edge{Source: mid, Target: x}))

	s.DeleteNodeAndReconnect(mid)

	assert.Empty(t, s.Edges())
}

func TestStore_DuplicateNode(t *testing.T) {
	s := newTestStore(t, 8)
	a := s.AddNode(NodeHTTPListener, Position{X: 100, Y: 100})
	b := s.AddNode(NodeTransformer, Position{})
	require.NoError(t, s.Connect(Edge{Source: a, Target: b}))
	s.UpdateNodeField(a, "port", 9999)

	dup := s.DuplicateNode(a)
	require.NotEmpty(t, dup)
	require.NotEqual(t, a, dup)

	n, ok := s.Node(dup)
	require.True(t, ok)
	assert.Equal(t, NodeHTTPListener, n.Type)
	assert.Equal(t, 9999, n.Data["port"], "attributes are copied")
	assert.Equal(t, 140.0, n.Position.X, "clone is offset")
	assert.Equal(t, 140.0, n.Position.Y)
	assert.Len(t, s.Edges(), 1, "edges are not duplicated")

	// The clone's data is independent of the original's.
	s.UpdateNodeField(dup, "port", 1)
	orig, _ := s.Node(a)
	assert.Equal(t, 9999, orig.Data["port"])
}

func TestStore_DuplicateNode_Missing(t *testing.T) {
	s := newTestStore(t, 2)
	assert.Empty(t, s.DuplicateNode("nope"))
}

func TestStore_Connect_RejectionLeavesGraphUnchanged(t *testing.T) {
	s := newTestStore(t, 4)
	a := s.AddNode(NodeHTTPListener, Position{})
	b := s.AddNode(NodeTCPListener, Position{})

	err := s.Connect(Edge{Source: a, Target: b})
	require.Error(t, err)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, connErr.Reason, "wrong role")
	assert.Empty(t, s.Edges())
}

func TestStore_Connect_IdenticalEndpointsIsNoop(t *testing.T) {
	s := newTestStore(t, 8)
	a := s.AddNode(NodeHTTPListener, Position{})
	b := s.AddNode(NodeTransformer, Position{})

	require.NoError(t, s.Connect(Edge{Source: a, Target: b}))
	require.NoError(t, s.Connect(Edge{Source: a, Target: b}))

	assert.Len(t, s.Edges(), 1)
}

func TestStore_Connect_RebindReplacesSlotBinding(t *testing.T) {
	s := newTestStore(t, 10)
	c1 := s.AddNode(NodeConstant, Position{})
	c2 := s.AddNode(NodeConstant, Position{})
	dst := s.AddNode(NodeHTTPListener, Position{})
	s.UpdateNodeField(c1, "value", 8080)
	s.UpdateNodeField(c2, "value", 9090)

	require.NoError(t, s.Connect(Edge{Source: c1, Target: dst, TargetHandle: "port"}))
	require.NoError(t, s.Connect(Edge{Source: c2, Target: dst, TargetHandle: "port"}))

	edges := s.Edges()
	require.Len(t, edges, 1, "one binding per slot")
	assert.Equal(t, c2, edges[0].Source, "latest wiring wins")
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := newTestStore(t, 8)
	a := s.AddNode(NodeHTTPListener, Position{})
	b := s.AddNode(NodeTransformer, Position{})
	require.NoError(t, s.Connect(Edge{Source: a, Target: b}))

	snap := s.Snapshot()
	s.UpdateNodeField(a, "port", 1234)
	s.DeleteNode(b)

	n, ok := snap.NodeByID(a)
	require.True(t, ok)
	assert.Equal(t, 8080, n.Data["port"], "snapshot does not see later edits")
	assert.Len(t, snap.Edges, 1)
}

func TestStore_LoadSnapshot_ResetsStatuses(t *testing.T) {
	s := newTestStore(t, 4)
	s.SetDeployState("deploy", DeployState{Status: DeploySuccess})
	s.SetRunState(RunState{Status: RunOnline, IsRunning: true})

	s.LoadSnapshot(Snapshot{
		Nodes: []Node{{ID: "n1", Type: NodeHTTPListener, Data: map[string]any{"port": 8080}}},
	}, Channel{ChannelID: "c1", ChannelName: "loaded"})

	assert.Equal(t, DeployIdle, s.DeployState("deploy").Status)
	assert.Equal(t, RunOffline, s.RunState().Status)
	assert.False(t, s.RunState().IsRunning)
	assert.Equal(t, "loaded", s.Channel().ChannelName)
	assert.Equal(t, 1, s.NodeCount())
}

func TestStore_DeployState_DefaultsIdle(t *testing.T) {
	s := newTestStore(t, 2)
	st := s.DeployState("never-used")
	assert.Equal(t, DeployIdle, st.Status)
	assert.Empty(t, st.Message)
}

func TestStore_NewStore_GeneratesChannelID(t *testing.T) {
	s := NewStore("adt-intake")
	ch := s.Channel()
	assert.NotEmpty(t, ch.ChannelID)
	assert.Equal(t, "adt-intake", ch.ChannelName)
}
