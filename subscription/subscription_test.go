package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	first := b.Subscribe()
	second := b.Subscribe()

	b.Notify(Event{Category: "tasks"})

	for _, ch := range []chan Event{first, second} {
		select {
		case ev := <-ch:
			if ev.Category != "tasks" {
				t.Fatalf("unexpected category: %s", ev.Category)
			}
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}

	b.Unsubscribe(second)
	b.Notify(Event{Category: "members"})
	select {
	case ev := <-second:
		t.Fatalf("unsubscribed channel received %v", ev)
	default:
	}
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()

	// Overfill the subscriber buffer; Notify must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Notify(Event{Category: "tasks"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow subscriber")
	}
	if len(ch) != cap(ch) {
		t.Fatalf("expected a full buffer, got %d", len(ch))
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestPublisherAnnouncesThroughSink(t *testing.T) {
	sink := &recordingSink{}
	p := NewPublisher(sink, 2, 16)

	p.Announce("tasks")
	p.Announce("notifications")
	p.Close()

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	seen := map[string]bool{}
	for _, ev := range events {
		seen[ev.Category] = true
		if ev.Origin != p.Origin() {
			t.Fatalf("event missing publisher origin: %#v", ev)
		}
	}
	if !seen["tasks"] || !seen["notifications"] {
		t.Fatalf("unexpected categories: %#v", events)
	}
}

func TestListenForwardsRedisEvents(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	broker := NewBroker()
	sub := broker.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Listen(ctx, rc, "board:updates", broker)
		close(done)
	}()
	// wait for subscription to start
	time.Sleep(50 * time.Millisecond)

	publisher := NewPublisher(NewRedisSink(rc, "board:updates"), 1, 4)
	publisher.Announce("config")
	publisher.Close()

	select {
	case ev := <-sub:
		if ev.Category != "config" {
			t.Fatalf("unexpected category: %s", ev.Category)
		}
		if ev.Origin != publisher.Origin() {
			t.Fatalf("unexpected origin: %s", ev.Origin)
		}
	case <-time.After(time.Second):
		t.Fatal("listener never forwarded the event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not exit")
	}
}

func TestRoundTripEndToEnd(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	// Two brokers standing in for two running instances on one channel.
	brokerA := NewBroker()
	brokerB := NewBroker()
	subA := brokerA.Subscribe()
	subB := brokerB.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Listen(ctx, rc, "board:updates", brokerA)
	go Listen(ctx, rc, "board:updates", brokerB)
	time.Sleep(50 * time.Millisecond)

	publisher := NewPublisher(NewRedisSink(rc, "board:updates"), 1, 4)
	publisher.Announce("tasks")
	publisher.Close()

	for name, ch := range map[string]chan Event{"A": subA, "B": subB} {
		select {
		case ev := <-ch:
			if ev.Category != "tasks" {
				t.Fatalf("instance %s got category %s", name, ev.Category)
			}
		case <-time.After(time.Second):
			t.Fatalf("instance %s never observed the change", name)
		}
	}
}
