package loopback

import (
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"testing/fstest"

	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

var yu12VGA = PixelFormatRequest{Width: 640, Height: 480, PixelFormat: v4l2.PixFmtYU12}

func newTestNegotiator(opener *fakeOpener, identities map[string]string) *Negotiator {
	return NewNegotiator(newTestLocator(registry(identities), opener))
}

func TestProposedFormat(t *testing.T) {
	tests := []struct {
		name string
		req  PixelFormatRequest
		want v4l2.PixFormat
	}{
		{
			name: "VGA I420",
			req:  yu12VGA,
			want: v4l2.PixFormat{
				Type:         v4l2.BufTypeVideoOutput,
				Width:        640,
				Height:       480,
				PixelFormat:  v4l2.PixFmtYU12,
				Field:        v4l2.FieldNone,
				BytesPerLine: 640,
				SizeImage:    460800,
				Colorspace:   v4l2.ColorspaceSRGB,
			},
		},
		{
			name: "odd geometry truncates",
			req:  PixelFormatRequest{Width: 3, Height: 3, PixelFormat: v4l2.PixFmtYU12},
			want: v4l2.PixFormat{
				Type:         v4l2.BufTypeVideoOutput,
				Width:        3,
				Height:       3,
				PixelFormat:  v4l2.PixFmtYU12,
				Field:        v4l2.FieldNone,
				BytesPerLine: 3,
				SizeImage:    13,
				Colorspace:   v4l2.ColorspaceSRGB,
			},
		},
		{
			name: "pixel format passed through",
			req:  PixelFormatRequest{Width: 1280, Height: 720, PixelFormat: v4l2.PixFmtYUYV},
			want: v4l2.PixFormat{
				Type:         v4l2.BufTypeVideoOutput,
				Width:        1280,
				Height:       720,
				PixelFormat:  v4l2.PixFmtYUYV,
				Field:        v4l2.FieldNone,
				BytesPerLine: 1280,
				SizeImage:    1382400,
				Colorspace:   v4l2.ColorspaceSRGB,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProposedFormat(tt.req)
			if got != tt.want {
				t.Errorf("ProposedFormat(%s) = %+v, want %+v", tt.req, got, tt.want)
			}
			if again := ProposedFormat(tt.req); again != got {
				t.Errorf("ProposedFormat is not deterministic: %+v then %+v", got, again)
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     PixelFormatRequest
		wantErr bool
	}{
		{"valid", yu12VGA, false},
		{"zero width", PixelFormatRequest{Width: 0, Height: 480}, true},
		{"negative height", PixelFormatRequest{Width: 640, Height: -1}, true},
		{"too large", PixelFormatRequest{Width: 1 << 20, Height: 1 << 20}, true},
		{"largest sizeimage", PixelFormatRequest{Width: 65536, Height: 43690}, false},
		{"one row past largest", PixelFormatRequest{Width: 65536, Height: 43691}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestValidateWideGeometry(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("needs 64-bit int")
	}
	shift := 32
	wide := 1 << shift

	for _, req := range []PixelFormatRequest{
		{Width: wide, Height: wide},
		{Width: wide, Height: 1},
		{Width: 1, Height: wide},
		{Width: math.MaxInt, Height: math.MaxInt},
	} {
		if err := req.Validate(); err == nil {
			f := ProposedFormat(req)
			t.Errorf("Validate(%dx%d) = nil, proposed %dx%d sizeimage %d", req.Width, req.Height, f.Width, f.Height, f.SizeImage)
		}
	}
}

func TestRequestString(t *testing.T) {
	if got := yu12VGA.String(); got != "640x480/YU12" {
		t.Errorf("String() = %q, want 640x480/YU12", got)
	}
}

func TestStartExplicitPath(t *testing.T) {
	opener := newFakeOpener()
	dev := opener.add("/dev/video7")
	n := newTestNegotiator(opener, map[string]string{})

	pipe, err := n.Start("/dev/video7", yu12VGA)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer pipe.Close()

	wantCalls := []string{OpQueryCap, OpGetFormat, OpSetFormat, OpGetFormat}
	if !slices.Equal(dev.calls, wantCalls) {
		t.Errorf("calls = %v, want %v", dev.calls, wantCalls)
	}
	if pipe.Path() != "/dev/video7" {
		t.Errorf("Path() = %q, want /dev/video7", pipe.Path())
	}
	if pipe.Match() != nil {
		t.Error("explicit path should not carry a discovery match")
	}
	if pipe.Format() != ProposedFormat(yu12VGA) {
		t.Errorf("Format() = %+v, want the proposed format", pipe.Format())
	}
	if dev.set == nil || *dev.set != ProposedFormat(yu12VGA) {
		t.Errorf("S_FMT received %+v, want the proposed format", dev.set)
	}
}

func TestStartAutoDevice(t *testing.T) {
	opener := newFakeOpener()
	opener.add("/dev/video0")
	dev := opener.add("/dev/video4")
	n := newTestNegotiator(opener, map[string]string{
		"video0": "Integrated Camera\n",
		"video4": "Loopback video device 1\n",
	})

	pipe, err := n.Start(AutoDevice, yu12VGA)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer pipe.Close()

	if pipe.Path() != "/dev/video4" {
		t.Errorf("Path() = %q, want /dev/video4", pipe.Path())
	}
	if m := pipe.Match(); m == nil || m.Minor != 1 {
		t.Errorf("Match() = %+v, want minor 1", m)
	}
	if len(dev.calls) != 4 {
		t.Errorf("calls = %v, want a full negotiation", dev.calls)
	}
}

func TestStartAutoDeviceNoMatch(t *testing.T) {
	opener := newFakeOpener()
	opener.add("/dev/video0")
	n := newTestNegotiator(opener, map[string]string{
		"video0": "Integrated Camera\n",
	})

	pipe, err := n.Start(AutoDevice, yu12VGA)
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Start() error = %v, want ErrNoMatch", err)
	}
	if pipe != nil {
		t.Error("Start() returned a pipe alongside an error")
	}
	if len(opener.opened) != 0 {
		t.Errorf("opened %v, want nothing", opener.opened)
	}
}

func TestStartOpenFailure(t *testing.T) {
	opener := newFakeOpener()
	n := newTestNegotiator(opener, map[string]string{})

	_, err := n.Start("/dev/video99", yu12VGA)
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Start() error = %v, want ErrOpen", err)
	}

	var e *Error
	if !errors.As(err, &e) || e.Path != "/dev/video99" || e.Op != OpOpen {
		t.Errorf("error = %#v, want Op=open Path=/dev/video99", err)
	}
}

func TestStartFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fakeDevice)
		wantKind  error
		wantOp    string
		wantCalls []string
	}{
		{
			name:      "capability query fails",
			setup:     func(d *fakeDevice) { d.capErr = syscall.ENOTTY },
			wantKind:  ErrQuery,
			wantOp:    OpQueryCap,
			wantCalls: []string{OpQueryCap},
		},
		{
			name:      "format query fails",
			setup:     func(d *fakeDevice) { d.getErr = syscall.EINVAL },
			wantKind:  ErrQuery,
			wantOp:    OpGetFormat,
			wantCalls: []string{OpQueryCap, OpGetFormat},
		},
		{
			name:      "set format rejected",
			setup:     func(d *fakeDevice) { d.setErr = syscall.EBUSY },
			wantKind:  ErrSetFormat,
			wantOp:    OpSetFormat,
			wantCalls: []string{OpQueryCap, OpGetFormat, OpSetFormat},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := newFakeOpener()
			dev := opener.add("/dev/video3")
			tt.setup(dev)
			n := newTestNegotiator(opener, map[string]string{})

			pipe, err := n.Start("/dev/video3", yu12VGA)
			if pipe != nil {
				t.Fatal("Start() returned a pipe alongside an error")
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("error = %v, want %v", err, tt.wantKind)
			}
			var e *Error
			if !errors.As(err, &e) || e.Op != tt.wantOp {
				t.Errorf("error op = %v, want %s", err, tt.wantOp)
			}
			if !slices.Equal(dev.calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", dev.calls, tt.wantCalls)
			}
			if dev.closes != 1 {
				t.Errorf("device closed %d times, want 1", dev.closes)
			}
			if dev.written != 0 {
				t.Errorf("%d bytes written after failed negotiation", dev.written)
			}
		})
	}
}

func TestStartUnderlyingErrno(t *testing.T) {
	opener := newFakeOpener()
	dev := opener.add("/dev/video3")
	dev.setErr = syscall.EBUSY
	n := newTestNegotiator(opener, map[string]string{})

	_, err := n.Start("/dev/video3", yu12VGA)
	if !errors.Is(err, syscall.EBUSY) {
		t.Errorf("error = %v, want it to match EBUSY", err)
	}
	if !strings.Contains(err.Error(), OpSetFormat) {
		t.Errorf("error %q should name the failing ioctl", err)
	}
}

func TestStartConfirmFallsBackToAccepted(t *testing.T) {
	opener := newFakeOpener()
	dev := opener.add("/dev/video3")
	dev.confirmErr = syscall.EIO
	dev.adjust = func(f v4l2.PixFormat) v4l2.PixFormat {
		f.SizeImage = 460800 + 4096
		return f
	}
	n := newTestNegotiator(opener, map[string]string{})

	pipe, err := n.Start("/dev/video3", yu12VGA)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer pipe.Close()

	if pipe.Format().SizeImage != 460800+4096 {
		t.Errorf("SizeImage = %d, want the S_FMT reply", pipe.Format().SizeImage)
	}
}

func TestStartDriverAdjustsFormat(t *testing.T) {
	opener := newFakeOpener()
	dev := opener.add("/dev/video3")
	dev.adjust = func(f v4l2.PixFormat) v4l2.PixFormat {
		f.Width, f.Height = 320, 240
		f.SizeImage = 320 * 240 * 3 / 2
		return f
	}
	n := newTestNegotiator(opener, map[string]string{})

	pipe, err := n.Start("/dev/video3", yu12VGA)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer pipe.Close()

	if f := pipe.Format(); f.Width != 320 || f.Height != 240 {
		t.Errorf("Format() = %dx%d, want the driver's 320x240", f.Width, f.Height)
	}
}

func TestStartInvalidRequest(t *testing.T) {
	opener := newFakeOpener()
	opener.add("/dev/video3")
	n := newTestNegotiator(opener, map[string]string{})

	_, err := n.Start("/dev/video3", PixelFormatRequest{Width: 0, Height: 480})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Start() error = %v, want ErrInvalidRequest", err)
	}
	if len(opener.opened) != 0 {
		t.Errorf("opened %v before validating the request", opener.opened)
	}
}

func TestProbe(t *testing.T) {
	opener := newFakeOpener()
	dev := opener.add("/dev/video5")
	n := NewNegotiator(newTestLocator(fstest.MapFS{
		"video5/name": &fstest.MapFile{Data: []byte("Loopback video device 0\n")},
	}, opener))

	res, err := n.Probe(AutoDevice)
	if err != nil {
		t.Fatalf("Probe() failed: %v", err)
	}

	if res.Path != "/dev/video5" {
		t.Errorf("Path = %q, want /dev/video5", res.Path)
	}
	if res.Capability.Driver != "v4l2 loopback" {
		t.Errorf("Driver = %q, want v4l2 loopback", res.Capability.Driver)
	}
	if !slices.Contains(res.Capability.DeviceCaps, "V4L2_CAP_VIDEO_OUTPUT") {
		t.Errorf("DeviceCaps = %v, want V4L2_CAP_VIDEO_OUTPUT", res.Capability.DeviceCaps)
	}
	if res.Format.Width != 320 || res.Format.Type != v4l2.BufTypeVideoOutput {
		t.Errorf("Format = %+v, want the current output format", res.Format)
	}
	if slices.Contains(dev.calls, OpSetFormat) {
		t.Error("Probe() must not change the format")
	}
	if dev.closes != 1 {
		t.Errorf("device closed %d times, want 1", dev.closes)
	}
}

func TestCapabilityReportText(t *testing.T) {
	opener := newFakeOpener()
	dev := opener.add("/dev/video0")

	report := NewCapabilityReport(dev.caps)
	var sb strings.Builder
	if err := report.WriteText(&sb); err != nil {
		t.Fatalf("WriteText() failed: %v", err)
	}

	out := sb.String()
	for _, want := range []string{"driver   = v4l2 loopback", "version  = 6.8.0", "VIDEO_OUTPUT", "device capabilities:"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteFormat(t *testing.T) {
	var sb strings.Builder
	if err := WriteFormat(&sb, "Proposed format", ProposedFormat(yu12VGA)); err != nil {
		t.Fatalf("WriteFormat() failed: %v", err)
	}

	out := sb.String()
	for _, want := range []string{"Proposed format\n", "sizeimage    = 460800", "pixelformat  = YU12 (0x32315559)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
