// Package bus provides a best-effort event bus used to fan out entity
// lifecycle notifications across handlers and, in redis mode, across
// process boundaries.
//
// Delivery is at-least-once within a process and best-effort overall:
// handler failures are logged, never retried, and never surfaced to the
// publisher.
package bus

import (
	"context"
	"encoding/json"

	"github.com/looplj/forgehub/internal/pkg/xredis"
)

const (
	ModeMemory = "memory"
	ModeRedis  = "redis"
)

// Handler consumes one event payload. A returned error is logged by the
// bus and otherwise ignored.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Bus is the publish/subscribe port consumed by the entity framework.
type Bus interface {
	// Publish broadcasts the payload to all subscribers of the event.
	Publish(ctx context.Context, event string, payload any) error

	// Subscribe registers a handler for the event and returns an
	// unsubscribe function (must be called once).
	Subscribe(event string, handler Handler) func()

	// Close releases all subscriptions and backing connections.
	Close() error
}

type Config struct {
	Mode string `conf:"mode" yaml:"mode" json:"mode"`

	// ChannelPrefix namespaces redis pub/sub channels, one channel per event name.
	ChannelPrefix string `conf:"channel_prefix" yaml:"channel_prefix" json:"channel_prefix"`

	Redis xredis.Config `conf:"redis" yaml:"redis" json:"redis"`
}

// NewFromConfig builds a Bus from the given config. Unknown or empty mode
// falls back to the in-memory bus.
func NewFromConfig(cfg Config) (Bus, error) {
	switch cfg.Mode {
	case ModeRedis:
		client, err := xredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}

		return NewRedisBus(client, RedisBusOptions{ChannelPrefix: cfg.ChannelPrefix})
	default:
		return NewMemoryBus(), nil
	}
}
