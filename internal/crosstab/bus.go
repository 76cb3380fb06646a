package crosstab

import (
	"errors"
	"sync"
)

// Transport is the broadcast primitive the channel publishes through. A nil
// transport degrades sends to a silent no-op: cross-instance sync is an
// enhancement, not a requirement for single-instance operation.
type Transport interface {
	Publish(msg Message)
	Subscribe(id string, ch chan<- Message) error
	Unsubscribe(id string) error
	Close() error
}

var (
	ErrSubscriberExists   = errors.New("subscriber id already exists")
	ErrSubscriberNotFound = errors.New("subscriber id not found")
	ErrBusClosed          = errors.New("bus is closed")
)

// Bus is an in-process Transport with non-blocking fan-out: a subscriber
// whose channel is full misses the message rather than stalling the sender.
// That matches the fire-and-forget contract; dropped hints are recovered by
// the next authoritative fetch.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan<- Message
	closed      bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]chan<- Message)}
}

// Subscribe registers a channel to receive broadcasts.
func (b *Bus) Subscribe(id string, ch chan<- Message) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	b.subscribers[id] = ch
	return nil
}

// Unsubscribe removes a subscriber by id.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	return nil
}

// Publish sends the message to every subscriber without blocking.
func (b *Bus) Publish(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Close stops the bus. Subscriber channels are not closed; their owners
// manage their lifecycle. Close is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

var _ Transport = (*Bus)(nil)
