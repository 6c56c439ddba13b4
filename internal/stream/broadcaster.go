package stream

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

const subscriberBuffer = 32

// Broadcaster fans sync state changes out to subscribers. Broadcast never
// blocks; a subscriber whose buffer is full misses that update.
type Broadcaster struct {
	subscribers map[uint64]chan models.SyncState
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.SyncState),
	}
}

// Subscribe registers a new subscriber. After Close the returned channel is
// already closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan models.SyncState) {
	id := b.nextID.Add(1)
	ch := make(chan models.SyncState, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(s models.SyncState) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- s:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
