package source

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader reads fixed-size raw frames from an io.Reader.
type Reader struct {
	r      io.Reader
	size   int
	loop   bool
	closer io.Closer
}

// NewReader wraps r. When loop is set and r is an io.Seeker, the reader
// rewinds at EOF instead of ending.
func NewReader(r io.Reader, frameSize int, loop bool) *Reader {
	rd := &Reader{r: r, size: frameSize, loop: loop}
	if c, ok := r.(io.Closer); ok {
		rd.closer = c
	}
	return rd
}

// OpenFile opens path as a frame reader; "-" reads standard input.
func OpenFile(path string, frameSize int, loop bool) (*Reader, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("invalid frame size %d", frameSize)
	}
	if path == "-" {
		rd := NewReader(os.Stdin, frameSize, false)
		rd.closer = nil
		return rd, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame source %s: %w", path, err)
	}
	return NewReader(f, frameSize, loop), nil
}

// FrameSize returns the byte size of one frame.
func (rd *Reader) FrameSize() int {
	return rd.size
}

// ReadFrame fills dst with the next frame. It returns io.EOF at a frame
// boundary and io.ErrUnexpectedEOF when the input ends mid-frame.
func (rd *Reader) ReadFrame(dst []byte) error {
	if err := checkSize(dst, rd.size); err != nil {
		return err
	}

	_, err := io.ReadFull(rd.r, dst)
	if !errors.Is(err, io.EOF) || !rd.loop {
		return err
	}

	seeker, ok := rd.r.(io.Seeker)
	if !ok {
		return io.EOF
	}
	if _, seekErr := seeker.Seek(0, io.SeekStart); seekErr != nil {
		return fmt.Errorf("failed to rewind frame source: %w", seekErr)
	}

	// An input shorter than one frame would otherwise loop forever.
	_, err = io.ReadFull(rd.r, dst)
	return err
}

// Close closes the underlying reader if it is closable. Standard input is
// left open.
func (rd *Reader) Close() error {
	if rd.closer == nil {
		return nil
	}
	c := rd.closer
	rd.closer = nil
	return c.Close()
}
