// Package stream fan-outs shipment tracking events to live subscribers
// (SSE clients). Subscriptions are tenant-filtered: a subscriber only
// receives events for its own account.
package stream

import (
	"context"
	"sync"

	"freightdesk.org/internal/shipping"
)

type subscriber struct {
	accountID string // empty means all accounts (admin dashboards)
	ch        chan shipping.TrackingEvent
}

// Stream fan-outs tracking events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

var _ shipping.TrackingPublisher = (*Stream)(nil)

// Subscribe registers a subscriber scoped to accountID and returns a channel
// which will receive matching events. An empty accountID subscribes to every
// tenant. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context, accountID string) <-chan shipping.TrackingEvent {
	ch := make(chan shipping.TrackingEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{accountID: accountID, ch: ch}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// PublishTracking fan-outs the event to subscribers of the owning account.
func (s *Stream) PublishTracking(evt shipping.TrackingEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.accountID != "" && sub.accountID != evt.AccountID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
