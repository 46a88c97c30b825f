package loopback

import (
	"fmt"
	"io"
	"strings"

	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

// CapabilityReport is a read-only decoding of VIDIOC_QUERYCAP for
// diagnostics. It never drives control decisions.
type CapabilityReport struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      string
	Mask         uint32
	Capabilities []string
	DeviceCaps   []string
}

// NewCapabilityReport decodes c against the named capability table.
func NewCapabilityReport(c v4l2.Capability) CapabilityReport {
	r := CapabilityReport{
		Driver:       c.Driver,
		Card:         c.Card,
		BusInfo:      c.BusInfo,
		Version:      c.VersionString(),
		Mask:         c.Capabilities,
		Capabilities: v4l2.CapabilityNames(c.Capabilities),
	}
	if c.Capabilities&v4l2.CapDeviceCaps != 0 {
		r.DeviceCaps = v4l2.CapabilityNames(c.DeviceCaps)
	}
	return r
}

// LogAttrs returns the report as slog key/value pairs.
func (r CapabilityReport) LogAttrs() []any {
	attrs := []any{
		"driver", r.Driver,
		"card", r.Card,
		"bus_info", r.BusInfo,
		"version", r.Version,
		"capabilities", strings.Join(r.Capabilities, ","),
	}
	if len(r.DeviceCaps) > 0 {
		attrs = append(attrs, "device_caps", strings.Join(r.DeviceCaps, ","))
	}
	return attrs
}

// WriteText renders the report for terminals.
func (r CapabilityReport) WriteText(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("Video Capabilities\n")
	fmt.Fprintf(&sb, "\tdriver   = %s\n", r.Driver)
	fmt.Fprintf(&sb, "\tcard     = %s\n", r.Card)
	fmt.Fprintf(&sb, "\tbus_info = %s\n", r.BusInfo)
	fmt.Fprintf(&sb, "\tversion  = %s\n", r.Version)
	sb.WriteString("\tcapabilities:\n")
	for _, name := range r.Capabilities {
		fmt.Fprintf(&sb, "\t\t%s\n", name)
	}
	if len(r.DeviceCaps) > 0 {
		sb.WriteString("\tdevice capabilities:\n")
		for _, name := range r.DeviceCaps {
			fmt.Fprintf(&sb, "\t\t%s\n", name)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// formatAttrs returns f as slog key/value pairs.
func formatAttrs(f v4l2.PixFormat) []any {
	return []any{
		"type", f.Type,
		"width", f.Width,
		"height", f.Height,
		"pixelformat", v4l2.FormatFourCC(f.PixelFormat),
		"sizeimage", f.SizeImage,
		"field", f.Field,
		"bytesperline", f.BytesPerLine,
		"colorspace", f.Colorspace,
	}
}

// WriteFormat renders f under title for terminals.
func WriteFormat(w io.Writer, title string, f v4l2.PixFormat) error {
	_, err := fmt.Fprintf(w, "%s\n"+
		"\ttype         = %d\n"+
		"\twidth        = %d\n"+
		"\theight       = %d\n"+
		"\tpixelformat  = %s (0x%08X)\n"+
		"\tsizeimage    = %d\n"+
		"\tfield        = %d\n"+
		"\tbytesperline = %d\n"+
		"\tcolorspace   = %d\n",
		title, f.Type, f.Width, f.Height,
		v4l2.FormatFourCC(f.PixelFormat), f.PixelFormat,
		f.SizeImage, f.Field, f.BytesPerLine, f.Colorspace)
	return err
}
