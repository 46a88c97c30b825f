package loopback

import (
	"fmt"

	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

// Pipe is an open, format-negotiated output device. It owns the device
// until Close.
type Pipe struct {
	dev    Device
	path   string
	match  *Match
	format v4l2.PixFormat
	closed bool
}

func newPipe(dev Device, path string, match *Match, format v4l2.PixFormat) *Pipe {
	return &Pipe{dev: dev, path: path, match: match, format: format}
}

// Path returns the device node the pipe writes to.
func (p *Pipe) Path() string {
	return p.path
}

// Match returns the discovery match, or nil when the path was explicit.
func (p *Pipe) Match() *Match {
	return p.match
}

// Format returns the format in effect after negotiation.
func (p *Pipe) Format() v4l2.PixFormat {
	return p.format
}

// Put writes frame with a single blocking write. It returns the number of
// bytes accepted, always within [0, len(frame)]. A short write returns
// ErrShortWrite alongside the count; the caller decides whether to send
// the remainder.
func (p *Pipe) Put(frame []byte) (int, error) {
	if p.closed {
		return 0, newError(OpWrite, p.path, ErrClosed, nil)
	}

	n, err := p.dev.Write(frame)
	n = max(0, min(n, len(frame)))
	if err != nil {
		return n, newError(OpWrite, p.path, ErrWrite, err)
	}
	if n < len(frame) {
		return n, newError(OpWrite, p.path, ErrShortWrite, fmt.Errorf("wrote %d of %d bytes", n, len(frame)))
	}
	return n, nil
}

// Close releases the device. Subsequent calls are no-ops.
func (p *Pipe) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.dev.Close()
}
