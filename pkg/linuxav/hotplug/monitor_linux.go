//go:build linux

package hotplug

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	kernelGroup = 1 // multicast group of kernel-originated uevents
	recvBufSize = 8192
)

// Monitor receives kernel uevents on a NETLINK_KOBJECT_UEVENT socket.
type Monitor struct {
	fd        int
	filters   map[string]struct{}
	filtersMu sync.RWMutex
	closeOnce sync.Once
	closeErr  error
}

// NewMonitor opens a uevent socket. Only events from the given subsystems
// are delivered; with none, every event is.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, err
	}

	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: kernelGroup}); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	// A receive timeout lets Run notice cancellation.
	tv := unix.Timeval{Sec: 1}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	m := &Monitor{fd: fd, filters: make(map[string]struct{})}
	for _, s := range subsystems {
		m.AddSubsystemFilter(s)
	}
	return m, nil
}

// AddSubsystemFilter restricts delivery to subsystem in addition to any
// filters already set. Safe for concurrent use.
func (m *Monitor) AddSubsystemFilter(subsystem string) {
	m.filtersMu.Lock()
	m.filters[subsystem] = struct{}{}
	m.filtersMu.Unlock()
}

// Close releases the socket. Subsequent calls return the first result.
func (m *Monitor) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = unix.Close(m.fd)
	})
	return m.closeErr
}

// Run delivers filtered events to out until ctx is done or the socket
// fails. out is closed when Run returns.
func (m *Monitor) Run(ctx context.Context, out chan<- Event) error {
	defer close(out)
	return m.receive(ctx, func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// WaitFor blocks until an event satisfying match arrives or ctx is done.
func (m *Monitor) WaitFor(ctx context.Context, match func(Event) bool) (Event, error) {
	var found Event
	err := m.receive(ctx, func(ev Event) bool {
		if match(ev) {
			found = ev
			return false
		}
		return true
	})
	if err != nil {
		return Event{}, err
	}
	return found, nil
}

// receive reads events until deliver returns false or ctx is done.
func (m *Monitor) receive(ctx context.Context, deliver func(Event) bool) error {
	buf := make([]byte, recvBufSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if n <= 0 {
			continue
		}

		ev := ParseUEvent(buf[:n])
		if ev == nil || !m.accepts(ev.Subsystem) {
			continue
		}
		if !deliver(*ev) {
			return ctx.Err()
		}
	}
}

func (m *Monitor) accepts(subsystem string) bool {
	m.filtersMu.RLock()
	defer m.filtersMu.RUnlock()
	if len(m.filters) == 0 {
		return true
	}
	_, ok := m.filters[subsystem]
	return ok
}
