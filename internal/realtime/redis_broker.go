package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	channelPrefix  = "voucherverse:"
	publishTimeout = 5 * time.Second
)

// RedisBroker bridges events across instances with Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisBroker creates a broker on client.
func NewRedisBroker(client *redis.Client, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{client: client, log: log.With().Str("component", "broker").Logger()}
}

// Publish sends ev to the topic's channel.
func (r *RedisBroker) Publish(ctx context.Context, topic string, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channelPrefix+topic, body).Err()
}

// Subscribe listens on the topic's channel and calls h for each decodable
// message until cancel is called or ctx ends.
func (r *RedisBroker) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	ctx, cancelCtx := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(ctx, channelPrefix+topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
					continue
				}
				h(ev)
			}
		}
	}()
	return cancelCtx, nil
}
