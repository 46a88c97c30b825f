package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan PipeStartedEvent, 1)

	unsub := bus.Subscribe(func(e PipeStartedEvent) {
		received <- e
	})
	defer unsub()

	ev := PipeStartedEvent{
		DevicePath:  "/dev/video10",
		Width:       640,
		Height:      480,
		PixelFormat: "YU12",
		SizeImage:   460800,
	}
	bus.Publish(ev)

	select {
	case got := <-received:
		if got != ev {
			t.Errorf("got %+v, want %+v", got, ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan FrameDroppedEvent, 1)
	received2 := make(chan FrameDroppedEvent, 1)

	unsub1 := bus.Subscribe(func(e FrameDroppedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e FrameDroppedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(FrameDroppedEvent{Sequence: 7, Reason: DropShortWrite})

	for i, ch := range []chan FrameDroppedEvent{received1, received2} {
		select {
		case got := <-ch:
			if got.Sequence != 7 {
				t.Errorf("subscriber %d got sequence %d, want 7", i, got.Sequence)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan PipeStoppedEvent, 1)

	unsub := bus.Subscribe(func(e PipeStoppedEvent) {
		received <- e
	})

	bus.Publish(PipeStoppedEvent{DevicePath: "/dev/video0"})
	<-received

	unsub()

	bus.Publish(PipeStoppedEvent{DevicePath: "/dev/video1"})
	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	startedReceived := make(chan bool, 1)
	hotplugReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ PipeStartedEvent) { startedReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ DeviceHotplugEvent) { hotplugReceived <- true })
	defer unsub2()

	bus.Publish(PipeStartedEvent{DevicePath: "/dev/video0"})
	<-startedReceived

	select {
	case <-hotplugReceived:
		t.Fatal("hotplug subscriber received PipeStartedEvent")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(DeviceHotplugEvent{Action: "add", DeviceName: "video10"})
	<-hotplugReceived

	select {
	case <-startedReceived:
		t.Fatal("pipe subscriber received DeviceHotplugEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	count := 0
	done := make(chan struct{})
	const total = 100

	unsub := bus.Subscribe(func(_ FrameDroppedEvent) {
		mu.Lock()
		count++
		if count == total {
			close(done)
		}
		mu.Unlock()
	})
	defer unsub()

	var wg sync.WaitGroup
	for i := range total {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			bus.Publish(FrameDroppedEvent{Sequence: uint64(seq)})
		}(i)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		mu.Lock()
		defer mu.Unlock()
		t.Fatalf("received %d of %d events", count, total)
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[PipeStoppedEvent](bus, ch)
	defer unsub()

	bus.Publish(PipeStoppedEvent{Reason: "cancelled"})

	select {
	case ev := <-ch:
		stopped, ok := ev.(PipeStoppedEvent)
		if !ok || stopped.Reason != "cancelled" {
			t.Errorf("got %#v, want PipeStoppedEvent{Reason: cancelled}", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel event")
	}
}

func TestSubscribeToChannelDropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[FrameDroppedEvent](bus, ch)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := range 10 {
			bus.Publish(FrameDroppedEvent{Sequence: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber channel")
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected at least one buffered event")
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(FrameDroppedEvent{
		DevicePath: "/dev/video10",
		Sequence:   3,
		Reason:     DropShortWrite,
		Written:    100,
		Expected:   460800,
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["reason"] != DropShortWrite {
		t.Errorf("reason = %v, want %s", decoded["reason"], DropShortWrite)
	}
	if _, ok := decoded["error"]; ok {
		t.Error("empty error should be omitted")
	}
}
