// internal/feed/redis.go
package feed

import (
	"context"
	"encoding/json"
	"sync"

	"musikmatch/internal/common/logger"
	"musikmatch/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Redis is a Source backed by Redis pub/sub. Each table is published on
// prefix:table by the realtime bridge.
type Redis struct {
	client    *redis.Client
	prefix    string
	validator *Validator
	logger    logger.Logger
}

func NewRedis(client *redis.Client, prefix string, validator *Validator, log logger.Logger) *Redis {
	return &Redis{
		client:    client,
		prefix:    prefix,
		validator: validator,
		logger:    log.WithFields(map[string]interface{}{"component": "feed"}),
	}
}

func (r *Redis) channel(table string) string {
	return r.prefix + ":" + table
}

// Subscribe opens a stream over the given tables. The stream must be closed
// by its consumer; events that fail schema validation are counted and
// dropped, never forwarded.
func (r *Redis) Subscribe(tables ...string) Stream {
	channels := make([]string, 0, len(tables))
	for _, t := range tables {
		channels = append(channels, r.channel(t))
	}

	ctx := context.Background()
	pubsub := r.client.Subscribe(ctx, channels...)

	s := &redisStream{
		pubsub: pubsub,
		events: make(chan Event, 64),
		doneCh: make(chan struct{}),
	}
	metrics.FeedSubscriptionsActive.Inc()

	go func() {
		defer close(s.events)
		defer metrics.FeedSubscriptionsActive.Dec()

		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				metrics.FeedEventsRejected.Inc()
				r.logger.Warn("dropping undecodable feed payload", map[string]interface{}{
					"channel": msg.Channel,
					"error":   err.Error(),
				})
				continue
			}

			if r.validator != nil {
				if err := r.validator.Validate(event); err != nil {
					metrics.FeedEventsRejected.Inc()
					r.logger.Warn("dropping feed event rejected by schema", map[string]interface{}{
						"table": event.Table,
						"error": err.Error(),
					})
					continue
				}
			}

			metrics.FeedEventsReceived.WithLabelValues(event.Table, string(event.Action)).Inc()

			select {
			case s.events <- event:
			case <-s.doneCh:
				return
			}
		}
	}()

	return s
}

type redisStream struct {
	pubsub    *redis.PubSub
	events    chan Event
	doneCh    chan struct{}
	closeOnce sync.Once
}

func (s *redisStream) Events() <-chan Event {
	return s.events
}

func (s *redisStream) Close() {
	s.closeOnce.Do(func() {
		close(s.doneCh)
		_ = s.pubsub.Close()
	})
}

// Publish emits one event on the table's channel. Used by the realtime
// bridge and by tests.
func (r *Redis) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel(event.Table), payload).Err()
}
