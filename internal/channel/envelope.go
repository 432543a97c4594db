package channel

import (
	"encoding/json"
	"errors"
)

// Reserved frame types consumed by the heartbeat protocol. Everything else is
// an application event and is forwarded to subscribers.
const (
	TypePing = "ping"
	TypePong = "pong"
)

// ErrNoType reports a frame whose envelope carries no type discriminator.
var ErrNoType = errors.New("frame has no type field")

// Envelope is the decoded wire frame. Every frame is a UTF-8 JSON object with
// at least a "type" discriminator; the backend's broadcasts additionally carry
// "data" and "timestamp".
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`

	// Raw holds the original frame bytes, verbatim, for consumers that want
	// the complete payload rather than the envelope fields.
	Raw []byte `json:"-"`
}

// pingFrame is the client→server heartbeat probe.
type pingFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// decodeEnvelope parses a raw text frame into an Envelope.
func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, ErrNoType
	}
	env.Raw = raw
	return env, nil
}
