package subscription

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Listen consumes change events from the Redis channel and forwards them to
// the broker until the context is cancelled. A closed pub/sub connection is
// reopened after a short pause.
func Listen(ctx context.Context, rc *redis.Client, channel string, broker *Broker) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Errorf("unable to parse change event: %v", err)
					continue
				}
				broker.Notify(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
