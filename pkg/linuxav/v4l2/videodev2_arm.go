//go:build linux && arm && !arm64

package v4l2

import "unsafe"

// Compile-time struct size assertions for 32-bit ARM.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [48]byte  = [unsafe.Sizeof(v4l2PixFormat{})]byte{}
	_ [204]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
)

// IOCTL constants for 32-bit ARM.
// VIDIOC_QUERYCAP is shared with 64-bit; the format ioctls encode the
// smaller 204-byte v4l2_format.
const (
	vidiocQuerycap = 0x80685600
	vidiocGFmt     = 0xc0cc5604
	vidiocSFmt     = 0xc0cc5605
)

// v4l2Capability - size 104 bytes (same as 64-bit)
type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

// v4l2PixFormat - size 48 bytes (same as 64-bit)
type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// v4l2Format - size 204 bytes, union is 4-byte aligned on 32-bit
type v4l2Format struct {
	typ uint32
	pix v4l2PixFormat
	_   [152]byte
}
