package events

import (
	"sync/atomic"

	"github.com/kelindar/event"
	"github.com/smazurov/vidpipe/internal/logging"
)

// SubscribeToChannel delivers events of type T to ch without blocking the
// publisher, for consumers that select on channels such as SSE handlers.
// When ch is full the event is discarded; the first discard of each
// subscription is logged.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	var warned atomic.Bool
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			if warned.CompareAndSwap(false, true) {
				logging.GetLogger("events").Warn("Subscriber is falling behind, dropping events", "type", e.Type())
			}
		}
	})
}
