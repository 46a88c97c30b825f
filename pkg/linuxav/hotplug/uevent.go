// Package hotplug listens for kernel device events over netlink without
// cgo and parses them into Event values.
package hotplug

import (
	"bytes"
	"errors"
	"path"
	"strings"
)

// Kernel actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Subsystems of interest.
const (
	SubsystemVideo4Linux = "video4linux"
	SubsystemUSB         = "usb"
)

// ErrUnsupported is returned by NewMonitor on platforms without netlink.
var ErrUnsupported = errors.New("hotplug monitoring is not supported on this platform")

var libudevMagic = []byte("libudev\x00")

// Event is a parsed kernel uevent.
type Event struct {
	Action    string
	KObj      string // kernel object path, e.g. /devices/virtual/video4linux/video10
	Subsystem string
	DevType   string
	DevName   string // e.g. video10
	DevPath   string
	Env       map[string]string
}

// DeviceNode returns the /dev node for the event, or "" when the event
// carries no DEVNAME.
func (e Event) DeviceNode() string {
	if e.DevName == "" {
		return ""
	}
	if strings.HasPrefix(e.DevName, "/") {
		return e.DevName
	}
	return path.Join("/dev", e.DevName)
}

// ParseUEvent parses "ACTION@KOBJ\0KEY=VALUE\0...". Messages relayed by
// libudev carry a binary header, which is skipped. It returns nil when data
// is not a uevent.
func ParseUEvent(data []byte) *Event {
	if bytes.HasPrefix(data, libudevMagic) {
		data = skipLibudevHeader(data)
	}

	fields := bytes.Split(data, []byte{0})
	if len(fields) == 0 {
		return nil
	}

	action, kobj, ok := strings.Cut(string(fields[0]), "@")
	if !ok || action == "" {
		return nil
	}

	ev := &Event{
		Action: action,
		KObj:   kobj,
		Env:    make(map[string]string),
	}

	for _, field := range fields[1:] {
		key, value, found := strings.Cut(string(field), "=")
		if !found || key == "" {
			continue
		}
		ev.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVTYPE":
			ev.DevType = value
		case "DEVNAME":
			ev.DevName = value
		case "DEVPATH":
			ev.DevPath = value
		}
	}

	return ev
}

// skipLibudevHeader returns the first NUL-delimited segment that looks like
// an ACTION@ header, or data unchanged when there is none.
func skipLibudevHeader(data []byte) []byte {
	rest := data
	for {
		i := bytes.IndexByte(rest, 0)
		if i < 0 || i+1 >= len(rest) {
			return data
		}
		rest = rest[i+1:]
		if at := bytes.IndexByte(rest, '@'); at > 0 && at < 20 {
			if nul := bytes.IndexByte(rest, 0); nul < 0 || at < nul {
				return rest
			}
		}
	}
}
