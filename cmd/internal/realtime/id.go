package realtime

import (
	"time"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity/ids"
)

// NewEnvelopeID returns a ULID used as envelope id, so frames sort by time in logs.
func NewEnvelopeID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// NewConnID returns a ULID identifying one websocket connection in logs.
func NewConnID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
