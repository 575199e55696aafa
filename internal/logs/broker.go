// Package logs fans out run-log snapshot updates to live view subscribers.
package logs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscriber receives a snapshot version number whenever the run-log
// snapshot changes.
type Subscriber struct {
	ID        string
	Ch        chan uint64
	CreatedAt time.Time
}

// Broker manages live-view subscriptions and update publishing.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	logger      *slog.Logger
}

// NewBroker creates a new update broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a live view for snapshot updates.
func (b *Broker) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:        uuid.NewString(),
		Ch:        make(chan uint64, 8),
		CreatedAt: time.Now(),
	}

	b.subscribers[sub.ID] = sub
	b.logger.Debug("subscriber added", "subscriber_id", sub.ID)

	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish notifies every subscriber of a new snapshot version. A slow
// subscriber with a full channel misses the notification; the next publish
// carries a newer version anyway.
func (b *Broker) Publish(version uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.Ch <- version:
		default:
			b.logger.Debug("subscriber channel full, dropping update",
				"subscriber_id", sub.ID,
				"version", version,
			)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
