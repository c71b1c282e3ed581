// Package resolver defines the remote-resolution port used for
// population and ownership checks, plus a registry binding resolver
// names declared in field descriptors to implementations.
package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplj/forgehub/internal/storage"
)

// Resolver resolves a batch of external ids into objects, positionally
// aligned with the input: a nil element marks a reference that no longer
// resolves. fields projects the returned objects.
type Resolver interface {
	Resolve(ctx context.Context, ids []string, fields []string) ([]storage.Record, error)
}

// Registry maps resolver names to implementations.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Resolver
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Resolver)}
}

func (r *Registry) Register(name string, res Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.m[name] = res
}

func (r *Registry) Get(name string) (Resolver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.m[name]
	if !ok {
		return nil, fmt.Errorf("resolver: unknown resolver %q", name)
	}

	return res, nil
}
