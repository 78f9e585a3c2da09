package event

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()

	var received Event
	var wg sync.WaitGroup
	wg.Add(1)

	unsub := bus.Subscribe(PositionChanged, func(e Event) {
		received = e
		wg.Done()
	})
	defer unsub()

	event := Event{Type: PositionChanged, Data: "sess-1"}
	bus.Publish(event)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Type != PositionChanged {
			t.Errorf("Expected PositionChanged, got %v", received.Type)
		}
		if received.Data != "sess-1" {
			t.Errorf("Expected 'sess-1', got %v", received.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	var count int32
	var wg sync.WaitGroup
	wg.Add(3)

	unsub := bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: PositionChanged, Data: nil})
	bus.Publish(Event{Type: StepCompleted, Data: nil})
	bus.Publish(Event{Type: Suspended, Data: nil})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if atomic.LoadInt32(&count) != 3 {
			t.Errorf("Expected 3 events, got %d", count)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for events")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	var count int32
	unsub := bus.Subscribe(PositionChanged, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: PositionChanged, Data: nil})
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("Expected 1 event before unsub, got %d", count)
	}

	unsub()

	bus.PublishSync(Event{Type: PositionChanged, Data: nil})
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("Expected still 1 event after unsub, got %d", count)
	}
}

func TestBus_UnsubscribeGlobal(t *testing.T) {
	bus := NewBus()

	var count int32
	unsub := bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: PositionChanged, Data: nil})
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("Expected 1 event before unsub, got %d", count)
	}

	unsub()

	bus.PublishSync(Event{Type: StepCompleted, Data: nil})
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("Expected still 1 event after unsub, got %d", count)
	}
}

func TestBus_PublishSync(t *testing.T) {
	bus := NewBus()

	var received []EventType
	var mu sync.Mutex

	bus.Subscribe(PositionChanged, func(e Event) {
		mu.Lock()
		received = append(received, e.Type)
		mu.Unlock()
	})
	bus.Subscribe(StepCompleted, func(e Event) {
		mu.Lock()
		received = append(received, e.Type)
		mu.Unlock()
	})

	bus.PublishSync(Event{Type: PositionChanged, Data: nil})
	bus.PublishSync(Event{Type: StepCompleted, Data: nil})

	mu.Lock()
	if len(received) != 2 {
		t.Errorf("Expected 2 events, got %d", len(received))
	}
	mu.Unlock()
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()

	var count int32
	var wg sync.WaitGroup
	wg.Add(3)

	for i := 0; i < 3; i++ {
		bus.Subscribe(PositionChanged, func(e Event) {
			atomic.AddInt32(&count, 1)
			wg.Done()
		})
	}

	bus.Publish(Event{Type: PositionChanged, Data: nil})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if atomic.LoadInt32(&count) != 3 {
			t.Errorf("Expected 3 subscribers to receive event, got %d", count)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for events")
	}
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus()

	bus.Publish(Event{Type: PositionChanged, Data: nil})
	bus.PublishSync(Event{Type: PositionChanged, Data: nil})
}

func TestBus_EventTypeFiltering(t *testing.T) {
	bus := NewBus()

	var positionCount, stepCount int32

	bus.Subscribe(PositionChanged, func(e Event) {
		atomic.AddInt32(&positionCount, 1)
	})
	bus.Subscribe(StepCompleted, func(e Event) {
		atomic.AddInt32(&stepCount, 1)
	})

	bus.PublishSync(Event{Type: PositionChanged, Data: nil})
	bus.PublishSync(Event{Type: PositionChanged, Data: nil})
	bus.PublishSync(Event{Type: StepCompleted, Data: nil})

	if atomic.LoadInt32(&positionCount) != 2 {
		t.Errorf("Expected 2 position events, got %d", positionCount)
	}
	if atomic.LoadInt32(&stepCount) != 1 {
		t.Errorf("Expected 1 step event, got %d", stepCount)
	}
}

func TestGlobalBus_Reset(t *testing.T) {
	var count int32
	Subscribe(PositionChanged, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	PublishSync(Event{Type: PositionChanged, Data: nil})
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("Expected 1 event before reset, got %d", count)
	}

	Reset()

	PublishSync(Event{Type: PositionChanged, Data: nil})
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("Expected still 1 event after reset, got %d", count)
	}
}

func TestBus_ConcurrentSubscribePublish(t *testing.T) {
	bus := NewBus()

	var count int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(PositionChanged, func(e Event) {
				atomic.AddInt32(&count, 1)
			})
			defer unsub()

			for j := 0; j < 10; j++ {
				bus.Publish(Event{Type: PositionChanged, Data: nil})
			}
		}()
	}

	wg.Wait()
	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&count) == 0 {
		t.Log("Warning: no events received, but no panic occurred")
	}
}

// TestBus_SlowSubscriberDropped verifies that a subscriber whose inbox
// fills up (spec §5's back-pressure rule) is dropped rather than
// blocking the publisher or the other subscribers.
func TestBus_SlowSubscriberDropped(t *testing.T) {
	bus := NewBus()

	block := make(chan struct{})
	var slowReceived int32
	bus.Subscribe(StepCompleted, func(e Event) {
		<-block // never unblocks during the test: simulates a stuck subscriber
		atomic.AddInt32(&slowReceived, 1)
	})

	var fastReceived int32
	var wg sync.WaitGroup
	fastDone := make(chan struct{})
	bus.Subscribe(StepCompleted, func(e Event) {
		n := atomic.AddInt32(&fastReceived, 1)
		if n == int32(subscriberBufferSize+10) {
			close(fastDone)
		}
	})
	_ = wg

	payload := StepCompletedData{SessionID: "sess-1", Step: types.Step{Ordinal: 1}}
	for i := 0; i < subscriberBufferSize+10; i++ {
		bus.Publish(Event{Type: StepCompleted, Data: payload})
	}

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fast subscriber did not receive all events; slow subscriber may have blocked delivery")
	}

	bus.mu.RLock()
	remaining := len(bus.subscribers[StepCompleted])
	bus.mu.RUnlock()
	if remaining != 1 {
		t.Fatalf("expected the slow subscriber to be dropped leaving 1 subscriber, got %d", remaining)
	}

	close(block)
}
