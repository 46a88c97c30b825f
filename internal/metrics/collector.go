package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/vidpipe/internal/events"
)

var hotplugEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "hotplug",
	Name:      "events_total",
	Help:      "video4linux uevents seen while waiting for a device",
}, []string{"action"})

// Subscribe feeds pipe lifecycle events from bus into the metrics and
// returns a function that detaches them.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.PipeStartedEvent) {
			PipeUp(e.DevicePath, e.SizeImage)
		}),
		bus.Subscribe(func(e events.PipeStoppedEvent) {
			PipeDown(e.DevicePath)
		}),
		bus.Subscribe(func(e events.FrameDroppedEvent) {
			FrameDropped(e.DevicePath, e.Reason, e.Written)
		}),
		bus.Subscribe(func(e events.DeviceHotplugEvent) {
			hotplugEvents.WithLabelValues(e.Action).Inc()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
