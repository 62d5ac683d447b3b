// internal/feed/bridge.go
package feed

import (
	"context"
	"encoding/json"
	"time"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/logger"

	"github.com/lib/pq"
)

// Bridge relays Postgres NOTIFY payloads onto the Redis feed. Database
// triggers publish one JSON event per row change on a single NOTIFY channel;
// the bridge fans them out to the per-table Redis channels that subscribers
// listen on.
type Bridge struct {
	listener *pq.Listener
	sink     *Redis
	channel  string
	logger   logger.Logger
}

func NewBridge(dsn, pgChannel string, minReconnect, maxReconnect time.Duration, sink *Redis, log logger.Logger) *Bridge {
	l := log.WithFields(map[string]interface{}{"component": "feed-bridge"})

	listener := pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.Warn("listener event", map[string]interface{}{
				"event": int(ev),
				"error": err.Error(),
			})
		}
	})

	return &Bridge{
		listener: listener,
		sink:     sink,
		channel:  pgChannel,
		logger:   l,
	}
}

// Run listens until the context is cancelled. Malformed notifications are
// logged and dropped; a nil notification after a connection loss triggers a
// re-ping so no restart is needed.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.listener.Listen(b.channel); err != nil {
		return errors.NewStoreConnectionFailedError(err)
	}
	defer b.listener.Close()

	b.logger.Info("realtime bridge started", map[string]interface{}{
		"pgChannel": b.channel,
	})

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ping.C:
			if err := b.listener.Ping(); err != nil {
				b.logger.Warn("listener ping failed", map[string]interface{}{
					"error": err.Error(),
				})
			}

		case notification := <-b.listener.Notify:
			if notification == nil {
				// Connection was re-established; the listener replays
				// nothing, subscribers recover via history loads.
				continue
			}
			b.relay(ctx, notification.Extra)
		}
	}
}

func (b *Bridge) relay(ctx context.Context, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		b.logger.Warn("dropping undecodable notification", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := b.sink.Publish(ctx, event); err != nil {
		b.logger.Error("failed to relay event", map[string]interface{}{
			"table": event.Table,
			"error": err.Error(),
		})
	}
}
