package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// memoryStore keeps collections of JSON-normalized records in process.
// Records round-trip through encoding/json so both adapters hand back the
// same value types (float64 numbers, []any lists, map[string]any objects).
type memoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

func NewMemoryStore() Store {
	return &memoryStore{
		collections: make(map[string]map[string]Record),
	}
}

func (s *memoryStore) collection(name string) map[string]Record {
	col, ok := s.collections[name]
	if !ok {
		col = make(map[string]Record)
		s.collections[name] = col
	}

	return col
}

func normalize(rec Record) (Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("storage: encode record: %w", err)
	}

	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("storage: decode record: %w", err)
	}

	return out, nil
}

func (s *memoryStore) Find(_ context.Context, collection string, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record

	for _, rec := range s.collections[collection] {
		if Matches(rec, q.Filter) {
			matched = append(matched, rec)
		}
	}

	sort := q.Sort
	if len(sort) == 0 {
		sort = []string{"id"}
	}

	sortRecords(matched, sort)

	matched = paginate(matched, q.Offset, q.Limit)

	out := make([]Record, len(matched))
	for i, rec := range matched {
		out[i] = project(rec, q.Fields)
	}

	return out, nil
}

func (s *memoryStore) Create(_ context.Context, collection string, rec Record) (Record, error) {
	id, ok := rec["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("storage: record id is required")
	}

	norm, err := normalize(rec)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(collection)
	if _, exists := col[id]; exists {
		return nil, fmt.Errorf("storage: duplicate id %q in %s", id, collection)
	}

	col[id] = norm

	return norm, nil
}

func (s *memoryStore) Update(_ context.Context, collection string, id string, patch Record) (Record, error) {
	norm, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(collection)

	rec, ok := col[id]
	if !ok {
		return nil, ErrNotFound
	}

	updated := Record{}
	for k, v := range rec {
		updated[k] = v
	}

	for k, v := range norm {
		updated[k] = v
	}

	col[id] = updated

	return updated, nil
}

func (s *memoryStore) Remove(_ context.Context, collection string, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(collection)

	rec, ok := col[id]
	if !ok {
		return nil, ErrNotFound
	}

	delete(col, id)

	return rec, nil
}

func (s *memoryStore) Count(_ context.Context, collection string, filter Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0

	for _, rec := range s.collections[collection] {
		if Matches(rec, filter) {
			count++
		}
	}

	return count, nil
}

func (s *memoryStore) Close() error {
	return nil
}
