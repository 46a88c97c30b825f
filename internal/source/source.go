// Package source produces raw planar YUV 4:2:0 frames for the pipe.
package source

import (
	"errors"
	"fmt"
)

// Source kinds accepted by Open.
const (
	KindPattern = "pattern"
	KindFile    = "file"
	KindStdin   = "stdin"
)

// ErrFrameSize is returned when a destination buffer does not match the
// source's frame size.
var ErrFrameSize = errors.New("buffer does not match frame size")

// Source fills fixed-size frames. ReadFrame returns io.EOF when the source
// is exhausted.
type Source interface {
	FrameSize() int
	ReadFrame(dst []byte) error
	Close() error
}

// Config selects and parameterizes a Source.
type Config struct {
	Kind   string
	Input  string // file path for KindFile
	Width  int
	Height int
	Loop   bool // rewind KindFile inputs at EOF
}

// FrameSize returns the byte size of one 4:2:0 planar frame, 3·w·h/2.
func FrameSize(width, height int) int {
	return width * height * 3 / 2
}

// Open creates the Source described by cfg.
func Open(cfg Config) (Source, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", cfg.Width, cfg.Height)
	}
	size := FrameSize(cfg.Width, cfg.Height)

	var (
		src Source
		err error
	)
	switch cfg.Kind {
	case "", KindPattern:
		src, err = NewPattern(cfg.Width, cfg.Height)
	case KindStdin:
		src, err = OpenFile("-", size, false)
	case KindFile:
		if cfg.Input == "" {
			return nil, errors.New("file source requires an input path")
		}
		src, err = OpenFile(cfg.Input, size, cfg.Loop)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
	if err != nil {
		// A typed nil must not escape as a non-nil Source.
		return nil, err
	}
	return src, nil
}

func checkSize(dst []byte, size int) error {
	if len(dst) != size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(dst), size)
	}
	return nil
}
