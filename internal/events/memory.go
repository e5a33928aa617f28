package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Publisher used by tests and by deployments
// without a broker. It records every event and fans out to subscribers.
type MemoryBus struct {
	mu     sync.Mutex
	events []Event
	subs   []chan Event
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.events = append(b.events, ev)
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default: // slow subscriber, drop
		}
	}
	return nil
}

// Subscribe returns a buffered channel receiving future events.
func (b *MemoryBus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 64)
	b.subs = append(b.subs, ch)
	return ch
}

// Events returns a snapshot of everything published so far.
func (b *MemoryBus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	return nil
}
