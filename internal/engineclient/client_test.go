package engineclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conduit/internal/flow"
)

func testSnapshot() (flow.Snapshot, flow.Channel) {
	snap := flow.Snapshot{
		Nodes: []flow.Node{{ID: "n1", Type: flow.NodeHTTPListener, Data: map[string]any{"port": 8080}}},
		Edges: []flow.Edge{},
	}
	ch := flow.Channel{ChannelID: "chan-1", ChannelName: "adt-intake", MaxRetries: 1}
	return snap, ch
}

func TestSubmitChannel_Body(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/channels/deploy", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithToken("sekrit"))
	snap, ch := testSnapshot()

	err := c.SubmitChannel(context.Background(), []byte(`{"channel":{"id":"chan-1"}}`), snap, ch)
	require.NoError(t, err)

	var body struct {
		Channel        json.RawMessage `json:"channel"`
		FrontendSchema struct {
			Nodes     []flow.Node `json:"nodes"`
			ChannelID string      `json:"channelId"`
		} `json:"frontend_schema"`
	}
	require.NoError(t, json.Unmarshal(got, &body))
	assert.JSONEq(t, `{"channel":{"id":"chan-1"}}`, string(body.Channel),
		"compiled document is embedded verbatim")
	assert.Equal(t, "chan-1", body.FrontendSchema.ChannelID)
	require.Len(t, body.FrontendSchema.Nodes, 1)
	assert.Equal(t, "n1", body.FrontendSchema.Nodes[0].ID)
}

func TestPost_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetries(5))
	err := c.StartChannel(context.Background(), "chan-1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "two 503s then success")
}

func TestPost_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad document", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetries(5))
	err := c.StartChannel(context.Background(), "chan-1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "a 4xx is permanent")
	assert.Contains(t, err.Error(), "bad document")
}

func TestPost_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetries(2))
	err := c.StopChannel(context.Background(), "chan-1")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestStartStopChannel_Paths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.StartChannel(context.Background(), "abc"))
	require.NoError(t, c.StopChannel(context.Background(), "abc"))

	assert.Equal(t, []string{
		"POST /api/channels/abc/start",
		"POST /api/channels/abc/stop",
	}, paths)
}

func TestHealth(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	require.NoError(t, NewClient(healthy.URL).Health(context.Background()))

	var calls atomic.Int32
	sick := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer sick.Close()

	err := NewClient(sick.URL).Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "health never retries")
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	require.NoError(t, c.Health(context.Background()))
}
