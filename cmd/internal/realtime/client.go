package realtime

import "sync"

// Client represents one connected status channel.
//
// Send is never closed by the server; done signals goroutines to stop.
type Client struct {
	ConnID     string
	SessionID  string
	EmployeeID string
	Send       chan Envelope

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(connID, sessionID, employeeID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	return &Client{
		ConnID:     connID,
		SessionID:  sessionID,
		EmployeeID: employeeID,
		Send:       make(chan Envelope, sendQueueSize),
		done:       make(chan struct{}),
	}
}

// Done returns a channel that is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent).
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
