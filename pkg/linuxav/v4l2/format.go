package v4l2

import (
	"fmt"
	"strings"
)

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}

// FourCC packs a four-character code such as "YU12" into its little-endian
// V4L2 representation. Codes shorter than four characters are padded with
// spaces, matching v4l2_fourcc() usage for codes like "Y10 ".
func FourCC(code string) (uint32, error) {
	if code == "" || len(code) > 4 {
		return 0, fmt.Errorf("invalid fourcc %q: must be 1-4 characters", code)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 0x20 || code[i] > 0x7e {
			return 0, fmt.Errorf("invalid fourcc %q: non-printable character", code)
		}
	}
	padded := code + strings.Repeat(" ", 4-len(code))
	return uint32(padded[0]) | uint32(padded[1])<<8 | uint32(padded[2])<<16 | uint32(padded[3])<<24, nil
}

var pixelFormatAliases = map[string]uint32{
	"i420":    PixFmtYU12,
	"yuv420p": PixFmtYU12,
	"yu12":    PixFmtYU12,
	"yv12":    PixFmtYV12,
	"nv12":    PixFmtNV12,
	"yuyv":    PixFmtYUYV,
	"yuyv422": PixFmtYUYV,
	"grey":    PixFmtGREY,
	"gray":    PixFmtGREY,
	"rgb24":   PixFmtRGB24,
	"bgr24":   PixFmtBGR24,
	"mjpeg":   PixFmtMJPEG,
	"h264":    PixFmtH264,
}

// ParsePixelFormat resolves a human-readable name ("i420", "yuyv422") or a
// raw four-character code ("YU12") to a pixel format value.
func ParsePixelFormat(name string) (uint32, error) {
	if pf, ok := pixelFormatAliases[strings.ToLower(name)]; ok {
		return pf, nil
	}
	return FourCC(name)
}
