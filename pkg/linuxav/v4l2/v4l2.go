// Package v4l2 provides pure Go bindings to the subset of the Video4Linux2
// (V4L2) API needed to feed frames into an output device such as a
// v4l2loopback sink.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Opening a Device
//
//	dev, err := v4l2.Open("/dev/video10")
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
// # Capabilities
//
//	caps, _ := dev.QueryCapability()
//	for _, name := range v4l2.CapabilityNames(caps.Capabilities) {
//	    fmt.Println(name)
//	}
//
// # Format Negotiation
//
// Read the current output format, propose a new one and inspect what the
// driver accepted:
//
//	current, _ := dev.GetFormat(v4l2.BufTypeVideoOutput)
//	accepted, err := dev.SetFormat(v4l2.PixFormat{
//	    Type:         v4l2.BufTypeVideoOutput,
//	    Width:        640,
//	    Height:       480,
//	    PixelFormat:  v4l2.PixFmtYU12,
//	    Field:        v4l2.FieldNone,
//	    BytesPerLine: 640,
//	    SizeImage:    640 * 480 * 3 / 2,
//	    Colorspace:   v4l2.ColorspaceSRGB,
//	})
//
// # Writing Frames
//
// Output devices accept raw frames through write(2):
//
//	n, err := dev.Write(frame)
package v4l2
