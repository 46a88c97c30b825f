package streamer

import "time"

// State is the lifecycle position of a Streamer.
type State string

// Streamer states.
const (
	StateIdle        State = "idle"
	StateNegotiating State = "negotiating"
	StateWaiting     State = "waiting"
	StateStreaming   State = "streaming"
	StateStopped     State = "stopped"
	StateFailed      State = "failed"
)

// Status is a point-in-time copy of the current or last session.
type Status struct {
	State       State
	SessionID   string
	DevicePath  string
	Minor       int
	Width       uint32
	Height      uint32
	PixelFormat string
	SizeImage   uint32
	Frames      uint64
	Bytes       uint64
	Dropped     uint64
	StartedAt   time.Time
	LastError   string
}

// Status returns a snapshot safe to read from any goroutine.
func (s *Streamer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
