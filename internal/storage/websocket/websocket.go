package websocket

import (
	"fmt"
	"log/slog"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/internal/snapshot"
	"github.com/dota-timeslice/replay-sampler/pkg/streaming"
	json "github.com/goccy/go-json"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams snapshots over WebSocket to a live consumer such as a
// broadcast overlay. Snapshots are fire-and-forget; match start and end wait
// for an ack.
type Backend struct {
	link    *link
	cfg     Config
	samples int
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		link: newLink(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.link.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.link.shutdown()
}

// Dropped returns how many messages were discarded because the send queue
// was full.
func (b *Backend) Dropped() int64 {
	return b.link.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartMatch announces the match and waits for the server ack. The message
// is replayed after a reconnect.
func (b *Backend) StartMatch(m *core.Match) error {
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{Match: m})
	if err != nil {
		return err
	}

	b.link.setStart(data)
	b.samples = 0

	return b.link.request(data, streaming.TypeStartMatch, ackTimeout)
}

// RecordSnapshot queues the snapshot for the write loop.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	teams, err := snapshot.Encode(s)
	if err != nil {
		return err
	}
	data, err := marshalEnvelope(streaming.TypeSnapshot, streaming.SnapshotPayload{
		MatchTime: s.MatchTime,
		Teams:     teams,
	})
	if err != nil {
		return err
	}
	b.link.enqueue(data)
	b.samples++
	return nil
}

// EndMatch sends end_match and waits for the server ack.
func (b *Backend) EndMatch() error {
	data, err := marshalEnvelope(streaming.TypeEndMatch, streaming.EndMatchPayload{Samples: b.samples})
	if err != nil {
		return err
	}
	err = b.link.request(data, streaming.TypeEndMatch, ackTimeout)
	b.link.setStart(nil)
	return err
}
