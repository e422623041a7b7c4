package subscription

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Sink receives the events a Publisher emits.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisSink publishes events onto a Redis pub/sub channel so every running
// instance observes them.
type RedisSink struct {
	rc      *redis.Client
	channel string
}

func NewRedisSink(rc *redis.Client, channel string) *RedisSink {
	return &RedisSink{rc: rc, channel: channel}
}

func (s *RedisSink) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rc.Publish(ctx, s.channel, data).Err()
}

// Publisher hands change announcements to a small worker pool so writes never
// wait on the broadcast. When the pool is saturated it publishes synchronously
// under a timeout instead of dropping the event. Publish failures are logged
// and never fail the originating write.
type Publisher struct {
	sink           Sink
	origin         string
	jobs           chan Event
	handoffTimeout time.Duration
	publishTimeout time.Duration
	wg             sync.WaitGroup
	closeOnce      sync.Once
}

func NewPublisher(sink Sink, workers, buffer int) *Publisher {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		sink:           sink,
		origin:         uuid.NewString(),
		jobs:           make(chan Event, buffer),
		handoffTimeout: 15 * time.Millisecond,
		publishTimeout: 5 * time.Second,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Origin is the identifier stamped on every event this publisher emits.
func (p *Publisher) Origin() string { return p.origin }

// Announce broadcasts that a collection changed.
func (p *Publisher) Announce(category string) {
	ev := Event{Category: category, Origin: p.origin}

	select {
	case p.jobs <- ev:
		return
	default:
	}

	timer := time.NewTimer(p.handoffTimeout)
	defer timer.Stop()
	select {
	case p.jobs <- ev:
	case <-timer.C:
		// Pool saturated, publish on the caller's goroutine instead.
		p.publish(ev)
	}
}

// Close stops the workers after draining queued events.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}

func (p *Publisher) worker() {
	defer p.wg.Done()
	for ev := range p.jobs {
		p.publish(ev)
	}
}

func (p *Publisher) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()
	if err := p.sink.Publish(ctx, ev); err != nil {
		log.WithField("category", ev.Category).Errorf("publish change event: %v", err)
	}
}
