// Package metrics provides Prometheus metrics for the loopback pipe.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vidpipe"

var (
	framesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "frames_written_total",
		Help:      "Frames fully accepted by the loopback device",
	}, []string{"device"})

	bytesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "bytes_written_total",
		Help:      "Bytes accepted by the loopback device, including partial frames",
	}, []string{"device"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "frames_dropped_total",
		Help:      "Frames the device did not fully accept",
	}, []string{"device", "reason"})

	pipeUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "up",
		Help:      "Whether a negotiated pipe is open on the device",
	}, []string{"device"})

	frameBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "frame_size_bytes",
		Help:      "Negotiated frame size",
	}, []string{"device"})

	negotiations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "negotiations_total",
		Help:      "Format negotiation attempts by result",
	}, []string{"result"})

	// Local cache for the status API.
	cache   = make(map[string]*PipeMetrics)
	cacheMu sync.RWMutex
)

// PipeMetrics holds current metric values for a device.
type PipeMetrics struct {
	Up            bool
	FrameSize     uint32
	FramesWritten uint64
	BytesWritten  uint64
	FramesDropped uint64
}

// Handler returns the Prometheus scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// PipeUp marks device as open with the given negotiated frame size.
func PipeUp(device string, frameSize uint32) {
	pipeUp.WithLabelValues(device).Set(1)
	frameBytes.WithLabelValues(device).Set(float64(frameSize))
	updateCache(device, func(m *PipeMetrics) {
		m.Up = true
		m.FrameSize = frameSize
	})
}

// PipeDown marks device as closed. Counters are kept.
func PipeDown(device string) {
	pipeUp.WithLabelValues(device).Set(0)
	updateCache(device, func(m *PipeMetrics) { m.Up = false })
}

// FrameWritten records a fully written frame of n bytes.
func FrameWritten(device string, n int) {
	framesWritten.WithLabelValues(device).Inc()
	bytesWritten.WithLabelValues(device).Add(float64(n))
	updateCache(device, func(m *PipeMetrics) {
		m.FramesWritten++
		m.BytesWritten += uint64(n)
	})
}

// FrameDropped records a dropped frame of which n bytes were accepted.
func FrameDropped(device, reason string, n int) {
	framesDropped.WithLabelValues(device, reason).Inc()
	if n > 0 {
		bytesWritten.WithLabelValues(device).Add(float64(n))
	}
	updateCache(device, func(m *PipeMetrics) {
		m.FramesDropped++
		m.BytesWritten += uint64(max(n, 0))
	})
}

// Negotiation records a negotiation outcome: "ok" or a failure kind.
func Negotiation(result string) {
	negotiations.WithLabelValues(result).Inc()
}

// DeletePipeMetrics removes all per-device series.
func DeletePipeMetrics(device string) {
	framesWritten.DeleteLabelValues(device)
	bytesWritten.DeleteLabelValues(device)
	framesDropped.DeletePartialMatch(prometheus.Labels{"device": device})
	pipeUp.DeleteLabelValues(device)
	frameBytes.DeleteLabelValues(device)

	cacheMu.Lock()
	delete(cache, device)
	cacheMu.Unlock()
}

// GetPipeMetrics returns a copy of the cached values for device, or nil.
func GetPipeMetrics(device string) *PipeMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	m, ok := cache[device]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

// GetAllPipeMetrics returns copies of the cached values of every device.
func GetAllPipeMetrics() map[string]PipeMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	out := make(map[string]PipeMetrics, len(cache))
	for device, m := range cache {
		out[device] = *m
	}
	return out
}

func updateCache(device string, update func(*PipeMetrics)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	m, ok := cache[device]
	if !ok {
		m = &PipeMetrics{}
		cache[device] = m
	}
	update(m)
}
