// Package exporters turns cached pipe metrics into periodic bus events for
// SSE clients.
package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/vidpipe/internal/events"
	"github.com/smazurov/vidpipe/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// StatsExporter publishes a PipeStatsEvent per device every interval.
type StatsExporter struct {
	eventBus EventPublisher
	interval time.Duration
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	last     map[string]uint64
	lastTick time.Time
}

// NewStatsExporter creates an exporter with a one second interval.
func NewStatsExporter(eventBus EventPublisher) *StatsExporter {
	return &StatsExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
		now:      time.Now,
		last:     make(map[string]uint64),
	}
}

// Start begins the export loop.
func (s *StatsExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.lastTick = s.now()
	s.wg.Add(1)
	go s.run()
}

// Stop stops the exporter and waits for the goroutine to finish.
func (s *StatsExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *StatsExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publish()
		}
	}
}

func (s *StatsExporter) publish() {
	now := s.now()
	elapsed := now.Sub(s.lastTick).Seconds()
	s.lastTick = now

	for device, m := range metrics.GetAllPipeMetrics() {
		var fps float64
		if prev, seen := s.last[device]; seen && elapsed > 0 && m.FramesWritten >= prev {
			fps = float64(m.FramesWritten-prev) / elapsed
		}
		s.last[device] = m.FramesWritten

		s.eventBus.Publish(events.PipeStatsEvent{
			DevicePath:    device,
			Up:            m.Up,
			FramesWritten: m.FramesWritten,
			BytesWritten:  m.BytesWritten,
			FramesDropped: m.FramesDropped,
			FPS:           fps,
			Timestamp:     now.UTC().Format(time.RFC3339),
		})
	}
}
