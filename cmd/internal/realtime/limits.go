package realtime

import "time"

const (
	// Max bytes per websocket frame read. Client frames are tiny.
	maxFrameBytes = 4 << 10 // 4 KiB

	defaultSendQueueSize = 16
)

const (
	defaultStatusInterval = 60 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	closeGrace            = 1 * time.Second

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second
	maxPingFailures   = 3
)
