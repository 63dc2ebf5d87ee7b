package ws

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventBusDeliver(t *testing.T) {
	bus := NewEventBus(16, 1)
	defer bus.Close()

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})
	bus.Subscribe(EventClientConnected, func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		close(done)
	})

	bus.Publish(Event{Type: EventClientConnected, ConnID: "c1", User: "alice"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("事件未在超时前送达")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].ConnID != "c1" || got[0].User != "alice" {
		t.Errorf("event = %+v", got[0])
	}
	if got[0].Time.IsZero() {
		t.Error("Time 应在发布时补齐")
	}
}

func TestEventBusTypeFilter(t *testing.T) {
	bus := NewEventBus(16, 1)
	defer bus.Close()

	var connected, disconnected atomic.Int64
	bus.Subscribe(EventClientConnected, func(e Event) { connected.Add(1) })
	bus.Subscribe(EventClientDisconnected, func(e Event) { disconnected.Add(1) })

	bus.Publish(Event{Type: EventClientConnected})
	bus.Publish(Event{Type: EventClientConnected})
	bus.Publish(Event{Type: EventClientDisconnected})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if connected.Load() == 2 && disconnected.Load() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("connected = %d, disconnected = %d, want 2/1", connected.Load(), disconnected.Load())
}

func TestEventBusListenerPanic(t *testing.T) {
	bus := NewEventBus(16, 1)
	defer bus.Close()

	var after atomic.Int64
	bus.Subscribe(EventJobCompleted, func(e Event) { panic("boom") })
	bus.Subscribe(EventJobCompleted, func(e Event) { after.Add(1) })

	bus.Publish(Event{Type: EventJobCompleted})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if after.Load() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("监听器 panic 不应影响后续监听器")
}

func TestEventBusCloseDrains(t *testing.T) {
	bus := NewEventBus(64, 1)

	var count atomic.Int64
	bus.Subscribe(EventMessageReceived, func(e Event) { count.Add(1) })

	for i := 0; i < 10; i++ {
		bus.Publish(Event{Type: EventMessageReceived})
	}
	bus.Close()

	if count.Load() != 10 {
		t.Errorf("count = %d, want 10 (关闭前应排空缓冲)", count.Load())
	}

	// 关闭后发布为空操作, 不应 panic
	bus.Publish(Event{Type: EventMessageReceived})
	bus.Close()
}
