package resolver

import (
	"context"
	"sync"

	"github.com/looplj/forgehub/internal/storage"
)

// Static resolves from a seeded in-process table. It backs the accounts
// collaborator in single-node deployments and in tests.
type Static struct {
	mu      sync.RWMutex
	objects map[string]storage.Record
}

func NewStatic() *Static {
	return &Static{objects: make(map[string]storage.Record)}
}

// Seed stores one resolvable object under its id.
func (s *Static) Seed(id string, obj storage.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[id] = obj
}

// Forget drops one object, making its id unresolvable.
func (s *Static) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, id)
}

func (s *Static) Resolve(_ context.Context, ids []string, fields []string) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Record, len(ids))

	for i, id := range ids {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}

		if len(fields) == 0 {
			out[i] = obj
			continue
		}

		projected := storage.Record{}
		if v, ok := obj["id"]; ok {
			projected["id"] = v
		}

		for _, f := range fields {
			if v, ok := obj[f]; ok {
				projected[f] = v
			}
		}

		out[i] = projected
	}

	return out, nil
}
