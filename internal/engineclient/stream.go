package engineclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// MessageStatus is one per-message processing outcome pushed by the
// engine.
type MessageStatus string

const (
	StatusProcessing MessageStatus = "PROCESSING"
	StatusSent       MessageStatus = "SENT"
	StatusError      MessageStatus = "ERROR"
	StatusFiltered   MessageStatus = "FILTERED"
)

// StatusEvent is one live status update for a deployed channel. The
// stream is a read-only signal consumed by metrics views; the deploy
// orchestrator never acts on it.
type StatusEvent struct {
	ChannelID string        `json:"channel_id"`
	MessageID string        `json:"message_id,omitempty"`
	Status    MessageStatus `json:"status"`
	Timestamp string        `json:"timestamp"`
}

// statusEventName is the socket.io event the engine emits updates on.
const statusEventName = "channel_status"

// connectTimeout bounds the initial socket.io handshake.
const connectTimeout = 15 * time.Second

// StatusStream is a live socket.io subscription to engine status
// events.
type StatusStream struct {
	io     *socket.Socket
	events chan StatusEvent
}

// OpenStatusStream connects to the engine's push channel and begins
// delivering events. The returned stream must be closed by the
// caller.
func OpenStatusStream(ctx context.Context, rawURL, namespace string) (*StatusStream, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream URL: %w", err)
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" && parsed.Path != "/" {
		opts.SetPath(parsed.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		slog.Info("status stream connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if err, ok := errs[0].(error); ok {
			connectChan <- err
			return
		}
		connectChan <- fmt.Errorf("status stream connect error: %v", errs[0])
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("status stream connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while connecting status stream: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for status stream connection", connectTimeout)
	}

	s := &StatusStream{
		io:     io,
		events: make(chan StatusEvent, 256),
	}

	io.On(types.EventName(statusEventName), func(args ...any) {
		if len(args) == 0 {
			return
		}
		ev, ok := decodeStatusEvent(args[0])
		if !ok {
			slog.Warn("status stream: unrecognized payload", "payload", args[0])
			return
		}
		select {
		case s.events <- ev:
		default:
			// A stalled consumer must not wedge the socket reader.
			slog.Warn("status stream: dropping event, consumer not keeping up",
				"channel_id", ev.ChannelID)
		}
	})

	return s, nil
}

// Events returns the live event feed. The channel closes when the
// stream is closed.
func (s *StatusStream) Events() <-chan StatusEvent {
	return s.events
}

// Close disconnects the socket and closes the event feed.
func (s *StatusStream) Close() {
	s.io.Disconnect()
	close(s.events)
}

func decodeStatusEvent(payload any) (StatusEvent, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return StatusEvent{}, false
	}

	ev := StatusEvent{}
	if v, ok := m["channel_id"].(string); ok {
		ev.ChannelID = v
	}
	if v, ok := m["message_id"].(string); ok {
		ev.MessageID = v
	}
	if v, ok := m["status"].(string); ok {
		ev.Status = MessageStatus(v)
	}
	switch v := m["timestamp"].(type) {
	case string:
		ev.Timestamp = v
	case float64:
		ev.Timestamp = time.UnixMilli(int64(v)).UTC().Format(time.RFC3339Nano)
	}

	if ev.ChannelID == "" || ev.Status == "" {
		return StatusEvent{}, false
	}
	return ev, true
}
