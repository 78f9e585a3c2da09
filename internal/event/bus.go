// Package event provides the pub/sub bus backing Orchestrator.Events()
// (spec §4.1, §5). It is built on watermill's in-process gochannel pubsub
// for its infrastructure while preserving direct-subscriber fan-out so Go
// type information survives, exactly as the teacher's internal/event/bus.go
// does. Unlike the teacher's bus, each async subscriber is fed through its
// own bounded channel: on overflow the slowest subscriber is dropped with
// a diagnostic, satisfying spec §5's back-pressure requirement.
package event

import (
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/cadenroberts/OllamaBot-sub010/internal/logging"
)

// EventType is an alias kept for readability at call sites.
type EventType = Type

// Event is a single published occurrence.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber receives events in the order they are delivered to it.
type Subscriber func(Event)

// subscriberBufferSize bounds each async subscriber's inbox (spec §5
// "bounded channel").
const subscriberBufferSize = 256

type subscriberEntry struct {
	id      uint64
	fn      Subscriber
	inbox   chan Event
	dropped atomic.Bool
}

// Bus is the event bus. The zero value is not usable; use NewBus.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[EventType][]*subscriberEntry
	global      []*subscriberEntry

	nextID uint64
	closed bool
}

var globalBus = newBus()

func newBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 100, Persistent: false},
			watermill.NopLogger{},
		),
		subscribers: make(map[EventType][]*subscriberEntry),
	}
}

// NewBus creates a standalone bus instance (tests, or a second run's
// private event stream).
func NewBus() *Bus { return newBus() }

func (b *Bus) newID() uint64 { return atomic.AddUint64(&b.nextID, 1) }

func newEntry(id uint64, fn Subscriber) *subscriberEntry {
	e := &subscriberEntry{id: id, fn: fn, inbox: make(chan Event, subscriberBufferSize)}
	go e.drain()
	return e
}

// drain is the subscriber's single worker goroutine: it calls fn for
// each event in the order it arrived on the inbox, preserving per-
// subscriber ordering even though delivery itself is async.
func (e *subscriberEntry) drain() {
	for evt := range e.inbox {
		e.fn(evt)
	}
}

func (e *subscriberEntry) offer(evt Event) (accepted bool) {
	select {
	case e.inbox <- evt:
		return true
	default:
		return false
	}
}

func (e *subscriberEntry) close() {
	close(e.inbox)
}

// Subscribe registers fn for a specific event type. Returns an
// unsubscribe function.
func Subscribe(t EventType, fn Subscriber) func() { return globalBus.Subscribe(t, fn) }

func (b *Bus) Subscribe(t EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	entry := newEntry(b.newID(), fn)
	b.subscribers[t] = append(b.subscribers[t], entry)
	return func() { b.unsubscribe(t, entry.id) }
}

// SubscribeAll registers fn for every event type.
func SubscribeAll(fn Subscriber) func() { return globalBus.SubscribeAll(fn) }

func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	entry := newEntry(b.newID(), fn)
	b.global = append(b.global, entry)
	return func() { b.unsubscribeGlobal(entry.id) }
}

func (b *Bus) unsubscribe(t EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[t]
	for i, e := range subs {
		if e.id == id {
			e.close()
			b.subscribers[t] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.global {
		if e.id == id {
			e.close()
			b.global = append(b.global[:i], b.global[i+1:]...)
			return
		}
	}
}

// dropSubscriber removes and closes a subscriber whose inbox
// overflowed, logging the diagnostic spec §5 requires. It takes the
// b.mu write lock itself, so the caller must not hold b.mu.
func (b *Bus) dropSubscriber(t EventType, id uint64, global bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if global {
		for i, e := range b.global {
			if e.id == id {
				e.close()
				b.global = append(b.global[:i], b.global[i+1:]...)
				break
			}
		}
	} else {
		subs := b.subscribers[t]
		for i, e := range subs {
			if e.id == id {
				e.close()
				b.subscribers[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	logging.Warn().Str("component", "event").Str("event_type", string(t)).Uint64("subscriber_id", id).
		Msg("event bus: dropped slow subscriber after inbox overflow")
}

// Publish delivers evt to subscribers asynchronously: each subscriber's
// own worker goroutine invokes fn, in the order events were offered to
// it. A subscriber whose inbox is full (cannot keep up) is dropped.
func Publish(evt Event) { globalBus.Publish(evt) }

func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	targets := make([]*subscriberEntry, 0, len(b.subscribers[evt.Type])+len(b.global))
	targets = append(targets, b.subscribers[evt.Type]...)
	isGlobal := make([]bool, len(b.subscribers[evt.Type]))
	for range b.global {
		isGlobal = append(isGlobal, true)
	}
	targets = append(targets, b.global...)
	b.mu.RUnlock()

	for i, e := range targets {
		if !e.offer(evt) {
			b.dropSubscriber(evt.Type, e.id, isGlobal[i])
		}
	}
}

// PublishSync delivers evt to every subscriber synchronously, in
// registration order, before returning.
func PublishSync(evt Event) { globalBus.PublishSync(evt) }

func (b *Bus) PublishSync(evt Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	fns := make([]Subscriber, 0, len(b.subscribers[evt.Type])+len(b.global))
	for _, e := range b.subscribers[evt.Type] {
		fns = append(fns, e.fn)
	}
	for _, e := range b.global {
		fns = append(fns, e.fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}

// Reset clears the global bus (tests only).
func Reset() {
	globalBus.mu.Lock()
	globalBus.closed = true
	for _, entries := range globalBus.subscribers {
		for _, e := range entries {
			e.close()
		}
	}
	for _, e := range globalBus.global {
		e.close()
	}
	globalBus.mu.Unlock()
	_ = globalBus.pubsub.Close()
	globalBus = newBus()
}

// Close closes the bus and all its subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, entries := range b.subscribers {
		for _, e := range entries {
			e.close()
		}
	}
	for _, e := range b.global {
		e.close()
	}
	b.subscribers = make(map[EventType][]*subscriberEntry)
	b.global = nil
	b.mu.Unlock()
	return b.pubsub.Close()
}

// PubSub exposes the underlying watermill GoChannel for advanced use
// (middleware, routing, or a future distributed backend).
func (b *Bus) PubSub() *gochannel.GoChannel { return b.pubsub }

// PubSub returns the global bus's underlying watermill GoChannel.
func PubSub() *gochannel.GoChannel { return globalBus.PubSub() }
