package loopback

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by this package matches exactly one
// of these with errors.Is, and also matches the underlying errno when
// there is one.
var (
	ErrEnumeration      = errors.New("registry enumeration failed")
	ErrCandidateSkipped = errors.New("candidate skipped")
	ErrNoMatch          = errors.New("no loopback device found")
	ErrOpen             = errors.New("open failed")
	ErrQuery            = errors.New("ioctl query failed")
	ErrSetFormat        = errors.New("set format failed")
	ErrWrite            = errors.New("write failed")
	ErrShortWrite       = errors.New("short write")
	ErrInvalidRequest   = errors.New("invalid format request")
	ErrClosed           = errors.New("pipe closed")
	ErrUnsupported      = errors.New("video devices are not supported on this platform")
)

// Operations recorded in Error.Op.
const (
	OpEnumerate = "enumerate"
	OpIdentity  = "identity"
	OpLocate    = "locate"
	OpOpen      = "open"
	OpQueryCap  = "VIDIOC_QUERYCAP"
	OpGetFormat = "VIDIOC_G_FMT"
	OpSetFormat = "VIDIOC_S_FMT"
	OpWrite     = "write"
	OpStart     = "start"
)

// Error describes a failed step of discovery, negotiation or writing.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Kind)
}

// Unwrap exposes both the failure kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, path string, kind, cause error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: cause}
}
