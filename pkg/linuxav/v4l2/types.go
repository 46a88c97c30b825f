package v4l2

import "fmt"

// Capability is the decoded result of VIDIOC_QUERYCAP.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

// VersionString returns the kernel version triplet encoded in Version.
func (c Capability) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", (c.Version>>16)&0xFF, (c.Version>>8)&0xFF, c.Version&0xFF)
}

// EffectiveCaps returns the capabilities of the opened node. Drivers that
// set CapDeviceCaps report per-node capabilities separately from the
// capabilities of the physical device as a whole.
func (c Capability) EffectiveCaps() uint32 {
	if c.Capabilities&CapDeviceCaps != 0 {
		return c.DeviceCaps
	}
	return c.Capabilities
}

// PixFormat is the single-planar pixel format exchanged by VIDIOC_G_FMT
// and VIDIOC_S_FMT.
type PixFormat struct {
	Type         uint32
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
}

// Buffer types.
const (
	BufTypeVideoCapture uint32 = 1
	BufTypeVideoOutput  uint32 = 2
)

// Field orders.
const (
	FieldAny  uint32 = 0
	FieldNone uint32 = 1 // progressive
)

// Colorspaces.
const (
	ColorspaceDefault uint32 = 0
	ColorspaceSRGB    uint32 = 8
)

// Common pixel formats.
const (
	PixFmtYUYV  uint32 = 0x56595559 // 'YUYV'
	PixFmtYU12  uint32 = 0x32315559 // 'YU12', planar 4:2:0 (I420)
	PixFmtYV12  uint32 = 0x32315659 // 'YV12'
	PixFmtNV12  uint32 = 0x3231564E // 'NV12'
	PixFmtGREY  uint32 = 0x59455247 // 'GREY'
	PixFmtRGB24 uint32 = 0x33424752 // 'RGB3'
	PixFmtBGR24 uint32 = 0x33524742 // 'BGR3'
	PixFmtMJPEG uint32 = 0x47504A4D // 'MJPG'
	PixFmtH264  uint32 = 0x34363248 // 'H264'
)
