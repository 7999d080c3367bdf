// Package persist owns the serialized shape of a flow: local saves,
// export/import, mandatory secret redaction, and channel-id repair.
package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/conduit/internal/flow"
)

// FormatVersion tags exported documents so future readers can branch
// on layout changes.
const FormatVersion = 1

// secretFields are node attributes that must never reach disk or an
// export. Redaction removes the field entirely rather than masking
// it, so a load can distinguish "absent" from "empty".
var secretFields = []string{
	"password",
	"apiKey",
	"token",
	"secret",
	"connectionString",
	"credentials",
}

// Document is the serialized flow shape shared by local saves and
// exports. Exports additionally carry FormatVersion.
type Document struct {
	FormatVersion      int         `json:"formatVersion,omitempty"`
	Nodes              []flow.Node `json:"nodes"`
	Edges              []flow.Edge `json:"edges"`
	ChannelName        string      `json:"channelName"`
	ChannelID          string      `json:"channelId"`
	ErrorDestinationID string      `json:"errorDestinationId,omitempty"`
	MaxRetries         int         `json:"maxRetries"`
	SavedAt            time.Time   `json:"savedAt"`
}

// NewDocument builds a redacted document from a graph snapshot and
// channel metadata.
func NewDocument(snap flow.Snapshot, ch flow.Channel, savedAt time.Time) Document {
	nodes := make([]flow.Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		nodes[i] = redactNode(n)
	}
	edges := make([]flow.Edge, len(snap.Edges))
	copy(edges, snap.Edges)

	return Document{
		Nodes:              nodes,
		Edges:              edges,
		ChannelName:        ch.ChannelName,
		ChannelID:          ch.ChannelID,
		ErrorDestinationID: ch.ErrorDestinationID,
		MaxRetries:         ch.MaxRetries,
		SavedAt:            savedAt.UTC(),
	}
}

// Restore converts a loaded document back into a snapshot and channel.
// A missing or malformed channel id is repaired with a freshly
// generated UUID rather than rejected: a corrupted id should cost the
// operator an identity, not their whole flow.
func Restore(doc Document) (flow.Snapshot, flow.Channel) {
	snap := flow.Snapshot{
		Nodes: make([]flow.Node, len(doc.Nodes)),
		Edges: make([]flow.Edge, len(doc.Edges)),
	}
	for i, n := range doc.Nodes {
		snap.Nodes[i] = n.Clone()
	}
	copy(snap.Edges, doc.Edges)

	ch := flow.Channel{
		ChannelID:          doc.ChannelID,
		ChannelName:        doc.ChannelName,
		ErrorDestinationID: doc.ErrorDestinationID,
		MaxRetries:         doc.MaxRetries,
	}
	if _, err := uuid.Parse(ch.ChannelID); err != nil {
		repaired := uuid.NewString()
		slog.Warn("repaired malformed channel id",
			"had", ch.ChannelID, "now", repaired)
		ch.ChannelID = repaired
	}
	if ch.MaxRetries < 0 {
		ch.MaxRetries = 0
	}
	return snap, ch
}

// Decode parses a document from JSON.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode flow document: %w", err)
	}
	return doc, nil
}

// Encode serializes a document to indented JSON, the on-disk and
// export representation. Determinism is not contractual here (that is
// the compiler's job); readability is.
func Encode(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode flow document: %w", err)
	}
	return append(data, '\n'), nil
}

func redactNode(n flow.Node) flow.Node {
	c := n.Clone()
	for _, field := range secretFields {
		delete(c.Data, field)
	}
	return c
}
