//go:build !linux

package hotplug

import "context"

// Monitor is unavailable on this platform.
type Monitor struct{}

// NewMonitor always fails with ErrUnsupported.
func NewMonitor(...string) (*Monitor, error) {
	return nil, ErrUnsupported
}

// AddSubsystemFilter does nothing.
func (m *Monitor) AddSubsystemFilter(string) {}

// Close does nothing.
func (m *Monitor) Close() error { return nil }

// Run fails with ErrUnsupported.
func (m *Monitor) Run(_ context.Context, out chan<- Event) error {
	close(out)
	return ErrUnsupported
}

// WaitFor fails with ErrUnsupported.
func (m *Monitor) WaitFor(context.Context, func(Event) bool) (Event, error) {
	return Event{}, ErrUnsupported
}
