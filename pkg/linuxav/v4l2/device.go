//go:build linux

package v4l2

import (
	"bytes"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by operations on a closed Device.
var ErrClosed = errors.New("v4l2: device closed")

// Device is an open V4L2 device node.
//
// A Device is not safe for concurrent use; callers serialize access.
type Device struct {
	path string
	fd   int
}

// Open opens the device node read-write. The descriptor is blocking so
// that Write waits for the driver to accept a frame.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Device{path: path, fd: fd}, nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// Fd returns the underlying file descriptor, or -1 once closed.
func (d *Device) Fd() int {
	return d.fd
}

// QueryCapability issues VIDIOC_QUERYCAP.
func (d *Device) QueryCapability() (Capability, error) {
	if d.fd < 0 {
		return Capability{}, ErrClosed
	}

	raw := v4l2Capability{}
	if err := ioctl(d.fd, vidiocQuerycap, unsafe.Pointer(&raw)); err != nil {
		return Capability{}, err
	}

	return Capability{
		Driver:       cstr(raw.driver[:]),
		Card:         cstr(raw.card[:]),
		BusInfo:      cstr(raw.busInfo[:]),
		Version:      raw.version,
		Capabilities: raw.capabilities,
		DeviceCaps:   raw.deviceCaps,
	}, nil
}

// GetFormat issues VIDIOC_G_FMT for the given buffer type.
func (d *Device) GetFormat(bufType uint32) (PixFormat, error) {
	if d.fd < 0 {
		return PixFormat{}, ErrClosed
	}

	raw := v4l2Format{typ: bufType}
	if err := ioctl(d.fd, vidiocGFmt, unsafe.Pointer(&raw)); err != nil {
		return PixFormat{}, err
	}
	return fromRawFormat(&raw), nil
}

// SetFormat issues VIDIOC_S_FMT. Drivers may adjust any field of the
// request; the returned format is what the driver wrote back.
func (d *Device) SetFormat(f PixFormat) (PixFormat, error) {
	if d.fd < 0 {
		return PixFormat{}, ErrClosed
	}

	raw := toRawFormat(f)
	if err := ioctl(d.fd, vidiocSFmt, unsafe.Pointer(&raw)); err != nil {
		return PixFormat{}, err
	}
	return fromRawFormat(&raw), nil
}

// Write performs a single write(2) of p. The returned count may be less
// than len(p); no attempt is made to write the remainder.
func (d *Device) Write(p []byte) (int, error) {
	if d.fd < 0 {
		return 0, ErrClosed
	}

	for {
		n, err := unix.Write(d.fd, p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// Close releases the file descriptor. Calling Close more than once is a no-op.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

func toRawFormat(f PixFormat) v4l2Format {
	raw := v4l2Format{typ: f.Type}
	raw.pix.width = f.Width
	raw.pix.height = f.Height
	raw.pix.pixelformat = f.PixelFormat
	raw.pix.field = f.Field
	raw.pix.bytesperline = f.BytesPerLine
	raw.pix.sizeimage = f.SizeImage
	raw.pix.colorspace = f.Colorspace
	return raw
}

func fromRawFormat(raw *v4l2Format) PixFormat {
	return PixFormat{
		Type:         raw.typ,
		Width:        raw.pix.width,
		Height:       raw.pix.height,
		PixelFormat:  raw.pix.pixelformat,
		Field:        raw.pix.field,
		BytesPerLine: raw.pix.bytesperline,
		SizeImage:    raw.pix.sizeimage,
		Colorspace:   raw.pix.colorspace,
	}
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
