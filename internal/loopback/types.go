package loopback

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

// AutoDevice asks Start to locate a loopback device instead of opening a
// literal path.
const AutoDevice = "-"

// Device is the control and data surface of an open video node.
// *v4l2.Device satisfies it on Linux.
type Device interface {
	QueryCapability() (v4l2.Capability, error)
	GetFormat(bufType uint32) (v4l2.PixFormat, error)
	SetFormat(f v4l2.PixFormat) (v4l2.PixFormat, error)
	Write(p []byte) (int, error)
	Close() error
}

// Opener opens a device node read-write.
type Opener func(path string) (Device, error)

// Candidate is a registry entry seen during a single scan.
type Candidate struct {
	Name       string // registry entry, e.g. "video10"
	DevicePath string // derived node, e.g. "/dev/video10"
	Identity   string // contents of the entry's name attribute
}

// Match is a candidate whose identity carries a loopback signature.
type Match struct {
	Candidate
	Signature string
	Minor     int
}

// PixelFormatRequest is the format a caller wants to write.
type PixelFormatRequest struct {
	Width       int
	Height      int
	PixelFormat uint32
}

// Validate checks the geometry. The pixel format code is passed through
// unchecked.
func (r PixelFormatRequest) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("width and height must be positive, got %dx%d", r.Width, r.Height)
	}
	if !fitsSizeImage(uint64(r.Width), uint64(r.Height)) {
		return fmt.Errorf("frame %dx%d is too large", r.Width, r.Height)
	}
	return nil
}

// fitsSizeImage reports whether width, height and 3·w·h/2 all fit the
// 32-bit fields of v4l2_pix_format.
func fitsSizeImage(width, height uint64) bool {
	if width > math.MaxUint32 || height > math.MaxUint32 {
		return false
	}
	hi, lo := bits.Mul64(width*height, 3)
	return hi == 0 && lo/2 <= math.MaxUint32
}

// FrameSize returns the byte size of one 4:2:0 planar frame: 3·w·h/2.
func (r PixelFormatRequest) FrameSize() int {
	return r.Width * r.Height * 3 / 2
}

// String formats the request as WxH/FOURCC.
func (r PixelFormatRequest) String() string {
	return fmt.Sprintf("%dx%d/%s", r.Width, r.Height, v4l2.FormatFourCC(r.PixelFormat))
}

// ProposedFormat builds the VIDIOC_S_FMT request for r. It is a pure
// function of the request.
func ProposedFormat(r PixelFormatRequest) v4l2.PixFormat {
	return v4l2.PixFormat{
		Type:         v4l2.BufTypeVideoOutput,
		Width:        uint32(r.Width),
		Height:       uint32(r.Height),
		PixelFormat:  r.PixelFormat,
		Field:        v4l2.FieldNone,
		BytesPerLine: uint32(r.Width),
		SizeImage:    uint32(r.FrameSize()),
		Colorspace:   v4l2.ColorspaceSRGB,
	}
}
