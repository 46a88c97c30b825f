//go:build linux

package hotplug

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestMonitor(t *testing.T, subsystems ...string) *Monitor {
	t.Helper()
	m, err := NewMonitor(subsystems...)
	if err != nil {
		t.Skipf("netlink uevent socket unavailable: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNewMonitorFilters(t *testing.T) {
	m := newTestMonitor(t, SubsystemVideo4Linux)

	if m.fd <= 0 {
		t.Errorf("expected valid fd, got %d", m.fd)
	}
	if !m.accepts(SubsystemVideo4Linux) {
		t.Error("video4linux should be accepted")
	}
	if m.accepts(SubsystemUSB) {
		t.Error("usb should be filtered out")
	}
}

func TestMonitorAcceptsAllWithoutFilters(t *testing.T) {
	m := newTestMonitor(t)
	if !m.accepts("anything") {
		t.Error("monitor without filters should accept every subsystem")
	}
}

func TestMonitorCloseIdempotent(t *testing.T) {
	m := newTestMonitor(t)

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestMonitorRunCancellation(t *testing.T) {
	m := newTestMonitor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Event, 1)
	if err := m.Run(ctx, out); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, open := <-out; open {
		t.Error("Run should close the output channel")
	}
}

func TestMonitorWaitForTimeout(t *testing.T) {
	m := newTestMonitor(t, SubsystemVideo4Linux)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.WaitFor(ctx, func(Event) bool { return false })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

// Run with -race to check filter updates against concurrent reads.
func TestMonitorConcurrentFilterAdd(t *testing.T) {
	m := newTestMonitor(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.AddSubsystemFilter(SubsystemVideo4Linux)
				m.AddSubsystemFilter(SubsystemUSB)
				_ = m.accepts(SubsystemVideo4Linux)
			}
		}()
	}
	wg.Wait()

	m.filtersMu.RLock()
	defer m.filtersMu.RUnlock()
	if len(m.filters) != 2 {
		t.Errorf("expected 2 filters, got %d", len(m.filters))
	}
}
