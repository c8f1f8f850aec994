// Package streaming defines the messages a live snapshot consumer receives.
package streaming

import (
	"encoding/json"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMatch = "start_match"
	TypeSnapshot   = "snapshot"
	TypeEndMatch   = "end_match"
	TypeAck        = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMatchPayload announces the replay being sampled.
type StartMatchPayload struct {
	Match *core.Match `json:"match"`
}

// SnapshotPayload carries one sample. Teams holds the same sorted-key
// `{"dire":…,"radiant":…}` object the snapshot stream writes.
type SnapshotPayload struct {
	MatchTime int             `json:"matchTime"`
	Teams     json.RawMessage `json:"teams"`
}

// EndMatchPayload closes a match with its sample count.
type EndMatchPayload struct {
	Samples int `json:"samples"`
}
