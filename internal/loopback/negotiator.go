package loopback

import (
	"log/slog"

	"github.com/smazurov/vidpipe/internal/logging"
	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

// Negotiator opens a device and sets its output format.
type Negotiator struct {
	locator *Locator
	open    Opener
	logger  *slog.Logger
}

// NewNegotiator creates a Negotiator that resolves AutoDevice through
// locator and opens literal paths with the locator's opener.
func NewNegotiator(locator *Locator) *Negotiator {
	return &Negotiator{
		locator: locator,
		open:    locator.Opener(),
		logger:  locator.logger,
	}
}

// ProbeResult is what Probe learned about a device without changing it.
type ProbeResult struct {
	Path       string
	Match      *Match
	Capability CapabilityReport
	Format     v4l2.PixFormat
}

// Start resolves devicePath (AutoDevice or a literal node), queries its
// capabilities and current output format, proposes the requested format
// and confirms what the driver accepted. Each step is fatal on failure; the
// device is closed and no Pipe is returned.
func (n *Negotiator) Start(devicePath string, req PixelFormatRequest) (*Pipe, error) {
	if err := req.Validate(); err != nil {
		n.logger.Error("Rejecting format request", "device", devicePath, "error", err)
		return nil, newError(OpStart, devicePath, ErrInvalidRequest, err)
	}

	dev, path, match, err := n.resolve(devicePath)
	if err != nil {
		return nil, err
	}

	pipe, err := n.negotiate(dev, path, match, req)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return pipe, nil
}

// Probe resolves devicePath and reads its capabilities and current output
// format. The device is closed before Probe returns.
func (n *Negotiator) Probe(devicePath string) (*ProbeResult, error) {
	dev, path, match, err := n.resolve(devicePath)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	caps, err := dev.QueryCapability()
	if err != nil {
		return nil, newError(OpQueryCap, path, ErrQuery, err)
	}
	current, err := dev.GetFormat(v4l2.BufTypeVideoOutput)
	if err != nil {
		return nil, newError(OpGetFormat, path, ErrQuery, err)
	}

	return &ProbeResult{
		Path:       path,
		Match:      match,
		Capability: NewCapabilityReport(caps),
		Format:     current,
	}, nil
}

func (n *Negotiator) resolve(devicePath string) (Device, string, *Match, error) {
	if devicePath == AutoDevice {
		dev, m, err := n.locator.Locate()
		if err != nil {
			n.logger.Error("Opening loopback device as output failed", "device", devicePath, "error", err)
			return nil, "", nil, err
		}
		return dev, m.DevicePath, &m, nil
	}

	dev, err := n.open(devicePath)
	if err != nil {
		err = newError(OpOpen, devicePath, ErrOpen, err)
		n.logger.Error("Opening device as output failed", "device", devicePath, "error", err)
		return nil, "", nil, err
	}
	logging.Notice(n.logger, "Opened device as output", "path", devicePath)
	return dev, devicePath, nil, nil
}

func (n *Negotiator) negotiate(dev Device, path string, match *Match, req PixelFormatRequest) (*Pipe, error) {
	logger := n.logger.With("path", path)

	caps, err := dev.QueryCapability()
	if err != nil {
		logger.Error("ioctl query failed", "ioctl", OpQueryCap, "error", err)
		return nil, newError(OpQueryCap, path, ErrQuery, err)
	}
	report := NewCapabilityReport(caps)
	logger.Info("Video capabilities", report.LogAttrs()...)
	if caps.EffectiveCaps()&v4l2.CapVideoOutput == 0 {
		logger.Warn("Device does not advertise video output")
	}

	current, err := dev.GetFormat(v4l2.BufTypeVideoOutput)
	if err != nil {
		logger.Error("ioctl query failed", "ioctl", OpGetFormat, "error", err)
		return nil, newError(OpGetFormat, path, ErrQuery, err)
	}
	logger.Info("Original format", formatAttrs(current)...)

	proposed := ProposedFormat(req)
	logger.Info("Proposed format", formatAttrs(proposed)...)

	accepted, err := dev.SetFormat(proposed)
	if err != nil {
		logger.Error("ioctl set format failed", "ioctl", OpSetFormat, "error", err)
		return nil, newError(OpSetFormat, path, ErrSetFormat, err)
	}

	final, err := dev.GetFormat(v4l2.BufTypeVideoOutput)
	if err != nil {
		logger.Warn("Could not confirm format, using driver reply", "ioctl", OpGetFormat, "error", err)
		final = accepted
	}
	logger.Info("Final format", formatAttrs(final)...)

	if final.Width != proposed.Width || final.Height != proposed.Height || final.PixelFormat != proposed.PixelFormat {
		logger.Warn("Device adjusted the proposed format",
			"requested", req.String(),
			"accepted_width", final.Width,
			"accepted_height", final.Height,
			"accepted_pixelformat", v4l2.FormatFourCC(final.PixelFormat))
	}

	logging.Notice(logger, "Output format negotiated", "format", req.String(), "sizeimage", final.SizeImage)
	return newPipe(dev, path, match, final), nil
}
