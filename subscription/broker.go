package subscription

import (
	"context"
	"sync"
)

// Broker fans events out to the SSE connections of this process. Sends are
// non-blocking; a subscriber that cannot keep up misses events and relies on
// the next one, which is safe because events only prompt a re-read.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new listener channel.
func (b *Broker) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 10)
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener channel.
func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, ch)
}

// Notify delivers the event to every subscriber without blocking.
func (b *Broker) Notify(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Publish lets the broker act as a direct sink in the single-process variant,
// where there is no pub/sub hop between writers and views.
func (b *Broker) Publish(ctx context.Context, ev Event) error {
	b.Notify(ev)
	return nil
}
