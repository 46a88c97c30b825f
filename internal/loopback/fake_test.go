package loopback

import (
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

// fakeDevice records every call made on it.
type fakeDevice struct {
	path       string
	caps       v4l2.Capability
	current    v4l2.PixFormat
	capErr     error
	getErr     error
	setErr     error
	confirmErr error
	adjust     func(v4l2.PixFormat) v4l2.PixFormat
	writeN     func(p []byte) int
	writeErr   error

	calls   []string
	written int
	closes  int
	set     *v4l2.PixFormat
}

func (d *fakeDevice) QueryCapability() (v4l2.Capability, error) {
	d.calls = append(d.calls, OpQueryCap)
	return d.caps, d.capErr
}

func (d *fakeDevice) GetFormat(bufType uint32) (v4l2.PixFormat, error) {
	d.calls = append(d.calls, OpGetFormat)
	if d.set != nil {
		if d.confirmErr != nil {
			return v4l2.PixFormat{}, d.confirmErr
		}
		return *d.set, nil
	}
	if d.getErr != nil {
		return v4l2.PixFormat{}, d.getErr
	}
	f := d.current
	f.Type = bufType
	return f, nil
}

func (d *fakeDevice) SetFormat(f v4l2.PixFormat) (v4l2.PixFormat, error) {
	d.calls = append(d.calls, OpSetFormat)
	if d.setErr != nil {
		return v4l2.PixFormat{}, d.setErr
	}
	if d.adjust != nil {
		f = d.adjust(f)
	}
	d.set = &f
	return f, nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.calls = append(d.calls, OpWrite)
	n := len(p)
	if d.writeN != nil {
		n = d.writeN(p)
	}
	if n > 0 {
		d.written += min(n, len(p))
	}
	return n, d.writeErr
}

func (d *fakeDevice) Close() error {
	d.closes++
	return nil
}

// fakeOpener hands out fakeDevices by path and tracks open handles.
type fakeOpener struct {
	mu      sync.Mutex
	devices map[string]*fakeDevice
	errs    map[string]error
	opened  []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		devices: make(map[string]*fakeDevice),
		errs:    make(map[string]error),
	}
}

func (o *fakeOpener) add(path string) *fakeDevice {
	d := &fakeDevice{
		path: path,
		caps: v4l2.Capability{
			Driver:       "v4l2 loopback",
			Card:         "Loopback video device 0",
			BusInfo:      "platform:v4l2loopback-000",
			Version:      6<<16 | 8<<8,
			Capabilities: v4l2.CapVideoOutput | v4l2.CapVideoCapture | v4l2.CapStreaming | v4l2.CapReadWrite | v4l2.CapDeviceCaps,
			DeviceCaps:   v4l2.CapVideoOutput | v4l2.CapStreaming | v4l2.CapReadWrite,
		},
		current: v4l2.PixFormat{Width: 320, Height: 240, PixelFormat: v4l2.PixFmtYUYV, Field: v4l2.FieldNone},
	}
	o.devices[path] = d
	return d
}

func (o *fakeOpener) fail(path string, err error) {
	o.errs[path] = err
}

func (o *fakeOpener) Open(path string) (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, path)
	if err, ok := o.errs[path]; ok {
		return nil, err
	}
	d, ok := o.devices[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return d, nil
}

// openHandles counts devices opened more times than closed.
func (o *fakeOpener) openHandles() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	count := 0
	for _, path := range o.opened {
		if _, failed := o.errs[path]; failed {
			continue
		}
		if _, ok := o.devices[path]; ok {
			count++
		}
	}
	for _, d := range o.devices {
		count -= d.closes
	}
	return count
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// errFS fails every operation, standing in for an unreadable registry.
type errFS struct{ err error }

func (e errFS) Open(string) (fs.File, error) { return nil, e.err }
