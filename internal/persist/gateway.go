package persist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/conduit/internal/flow"
)

// Gateway is the persistence surface the rest of the system sees:
// save/load against the local store and export/import against files.
// All paths redact secrets on the way out and repair channel ids on
// the way in.
type Gateway struct {
	store *Store
	now   func() time.Time
}

// NewGateway wraps a local store.
func NewGateway(store *Store) *Gateway {
	return &Gateway{store: store, now: time.Now}
}

// Save writes the redacted flow document to the local store.
func (g *Gateway) Save(ctx context.Context, snap flow.Snapshot, ch flow.Channel) error {
	doc := NewDocument(snap, ch, g.now())
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := g.store.Put(ctx, ch.ChannelID, data, doc.SavedAt.Format(time.RFC3339Nano)); err != nil {
		return err
	}
	slog.Debug("flow saved", "channel_id", ch.ChannelID, "nodes", len(doc.Nodes))
	return nil
}

// Load reads the most recently saved flow from the local store,
// repairing the channel id if needed. Returns ErrNoFlow when nothing
// has ever been saved.
func (g *Gateway) Load(ctx context.Context) (flow.Snapshot, flow.Channel, error) {
	data, err := g.store.Latest(ctx)
	if err != nil {
		return flow.Snapshot{}, flow.Channel{}, err
	}
	doc, err := Decode(data)
	if err != nil {
		return flow.Snapshot{}, flow.Channel{}, err
	}
	snap, ch := Restore(doc)
	return snap, ch, nil
}

// Export writes the flow as a versioned document to w.
func (g *Gateway) Export(w io.Writer, snap flow.Snapshot, ch flow.Channel) error {
	doc := NewDocument(snap, ch, g.now())
	doc.FormatVersion = FormatVersion
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Import reads a document from r, applies the channel-id repair rule,
// and immediately saves the result to the local store so the imported
// flow survives a crash before the next explicit save.
func (g *Gateway) Import(ctx context.Context, r io.Reader) (flow.Snapshot, flow.Channel, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return flow.Snapshot{}, flow.Channel{}, fmt.Errorf("read import: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return flow.Snapshot{}, flow.Channel{}, err
	}
	if doc.FormatVersion > FormatVersion {
		return flow.Snapshot{}, flow.Channel{}, fmt.Errorf(
			"unsupported flow format version %d (this build reads up to %d)",
			doc.FormatVersion, FormatVersion)
	}

	snap, ch := Restore(doc)
	if err := g.Save(ctx, snap, ch); err != nil {
		return flow.Snapshot{}, flow.Channel{}, fmt.Errorf("save imported flow: %w", err)
	}
	return snap, ch, nil
}
