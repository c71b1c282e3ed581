package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/looplj/forgehub/internal/log"
)

type memoryBus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]Handler
	wg     sync.WaitGroup
	closed bool
}

// NewMemoryBus creates an in-process bus. Handlers run on their own
// goroutine per delivery, detached from the publisher's context so a
// disconnecting publisher cannot cancel them.
func NewMemoryBus() Bus {
	return &memoryBus{
		subs: make(map[string]map[uint64]Handler),
	}
}

func (b *memoryBus) Publish(_ context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	for _, handler := range b.subs[event] {
		b.wg.Add(1)

		go func(handler Handler) {
			defer b.wg.Done()

			dispatch(context.Background(), event, handler, data)
		}(handler)
	}

	return nil
}

func (b *memoryBus) Subscribe(event string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	if b.subs[event] == nil {
		b.subs[event] = make(map[uint64]Handler)
	}

	b.subs[event][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.subs[event], id)
	}
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.subs = make(map[string]map[uint64]Handler)
	b.mu.Unlock()

	b.wg.Wait()

	return nil
}

// dispatch runs one handler delivery, containing panics and logging
// failures without retry.
func dispatch(ctx context.Context, event string, handler Handler, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "bus handler panic",
				log.String("event", event),
				log.Any("panic", r),
			)
		}
	}()

	if err := handler(ctx, payload); err != nil {
		log.Error(ctx, "bus handler failed",
			log.String("event", event),
			log.Cause(err),
		)
	}
}
