package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Wire protocol of the session status channel (subprotocol wise.session.v1).
const (
	Version = 1

	// Server -> client.
	TypeSessionStatus = "session.status"
	TypeSessionEnded  = "session.ended"
	TypeError         = "error"

	// Client -> server.
	TypeSessionExtend     = "session.extend"
	TypeSessionStatusPoll = "session.status.get"
)

var clientTypes = map[string]struct{}{
	TypeSessionExtend:     {},
	TypeSessionStatusPoll: {},
}

// Envelope is one JSON text frame.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate checks a client frame.
func (e Envelope) Validate() error {
	if e.V != Version {
		return fmt.Errorf("invalid protocol version: got=%d want=%d", e.V, Version)
	}
	if e.Type == "" {
		return errors.New("missing type")
	}
	if _, ok := clientTypes[e.Type]; !ok {
		return fmt.Errorf("unsupported type: %s", e.Type)
	}
	return nil
}

// StatusPayload mirrors GET /auth/session.
type StatusPayload struct {
	Active     bool      `json:"active"`
	ExpiresAt  time.Time `json:"expires_at"`
	NearExpiry bool      `json:"near_expiry"`
	LongTerm   bool      `json:"long_term"`
	// Extended is set on the reply to session.extend.
	Extended bool `json:"extended,omitempty"`
}

// EndedPayload is sent once before the server closes the connection.
type EndedPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload reports a rejected client frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
