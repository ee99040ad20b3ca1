package probe

import "time"

// State is the ephemeral snapshot of a component's OS process. It is derived
// fresh on every probe and never persisted, so it is stale by at most one
// probe latency.
type State struct {
	Running    bool
	PID        int32
	MemoryRSS  uint64
	CPUPercent float64
	StartedAt  time.Time
	// Port is the listening TCP port, 0 when the process is not listening
	// or the socket table could not be read.
	Port int
}

// NotRunning is the normal negative probe result. It is not an error.
func NotRunning() State {
	return State{Running: false}
}
