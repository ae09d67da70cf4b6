package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "session:"
	publishTimeout = 5 * time.Second
)

// RedisBus bridges session events across console instances via Redis
// pub/sub. Each principal gets its own channel so a watcher only receives
// its own events.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, ev domain.SessionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return b.client.Publish(ctx, channelPrefix+ev.UID, body).Err()
}

// Subscribe listens on the uid's channel and calls handler per event.
// The returned cancel stops the subscription and its goroutine.
func (b *RedisBus) Subscribe(uid string, handler func(domain.SessionEvent)) (func(), error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	sub := b.client.Subscribe(ctx, channelPrefix+uid)

	if _, err := sub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe session events: %w", err)
	}

	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev domain.SessionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("session event decode failed",
						zap.String("uid", uid),
						zap.Error(err),
					)
					continue
				}
				handler(ev)
			}
		}
	}()

	return cancelCtx, nil
}
