package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/looplj/forgehub/internal/log"
)

type RedisBusOptions struct {
	ChannelPrefix string
}

type redisBus struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	nextID uint64
	events map[string]*redisEvent
}

// redisEvent tracks the subscribers and the pubsub connection of one event name.
type redisEvent struct {
	subs   map[uint64]Handler
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// NewRedisBus creates a bus backed by redis pub/sub. One redis channel is
// used per event name; subscriptions are reference-counted so the pubsub
// connection is closed when the last handler unsubscribes.
func NewRedisBus(client *redis.Client, opts RedisBusOptions) (Bus, error) {
	if client == nil {
		return nil, errors.New("bus.RedisBus: redis client is required")
	}

	prefix := opts.ChannelPrefix
	if prefix == "" {
		prefix = "forgehub:events"
	}

	return &redisBus{
		client: client,
		prefix: prefix,
		events: make(map[string]*redisEvent),
	}, nil
}

func (b *redisBus) channel(event string) string {
	return b.prefix + ":" + event
}

func (b *redisBus) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.channel(event), data).Err()
}

func (b *redisBus) Subscribe(event string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ev, ok := b.events[event]
	if !ok {
		ev = &redisEvent{subs: make(map[uint64]Handler)}
		b.events[event] = ev
		b.startLocked(event, ev)
	}

	ev.subs[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		ev, ok := b.events[event]
		if !ok {
			return
		}

		delete(ev.subs, id)

		if len(ev.subs) == 0 {
			b.stopLocked(ev)
			delete(b.events, event)
		}
	}
}

func (b *redisBus) startLocked(event string, ev *redisEvent) {
	ctx, cancel := context.WithCancel(context.Background())
	ev.cancel = cancel

	ev.pubsub = b.client.Subscribe(ctx, b.channel(event))
	_, _ = ev.pubsub.Receive(ctx)

	go func(ps *redis.PubSub) {
		for {
			msg, err := ps.ReceiveMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) || ctx.Err() != nil {
					return
				}

				log.Warn(context.Background(), "bus redis receive failed",
					log.String("event", event),
					log.Cause(err))

				continue
			}

			b.mu.Lock()
			handlers := make([]Handler, 0, len(ev.subs))

			for _, h := range ev.subs {
				handlers = append(handlers, h)
			}
			b.mu.Unlock()

			for _, h := range handlers {
				dispatch(context.Background(), event, h, json.RawMessage(msg.Payload))
			}
		}
	}(ev.pubsub)
}

func (b *redisBus) stopLocked(ev *redisEvent) {
	if ev.cancel != nil {
		ev.cancel()
		ev.cancel = nil
	}

	if ev.pubsub != nil {
		_ = ev.pubsub.Close()
		ev.pubsub = nil
	}
}

func (b *redisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for event, ev := range b.events {
		b.stopLocked(ev)
		delete(b.events, event)
	}

	return nil
}
