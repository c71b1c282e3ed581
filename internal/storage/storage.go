// Package storage defines the narrow persistence port consumed by the
// entity framework, together with a memory adapter and a database/sql
// adapter storing records as JSON documents.
//
// The port only understands structural predicates over stored fields;
// scoping, soft deletion and authorization all live above it.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Record is one stored document, keyed by field name.
type Record = map[string]any

// Filter is a structural predicate over stored field values.
//
// Plain values match by equality. A nil value matches a missing or null
// field. A list value matches if the stored scalar is a member, and a
// scalar matches a stored list that contains it. A nested map holds
// operators: $ne, $in, $nin, $lt, $lte, $gt, $gte, $exists.
type Filter = map[string]any

// Query shapes one Find call.
type Query struct {
	Filter Filter

	// Fields projects the result to the named fields. The id field is
	// always included. Empty means all fields.
	Fields []string

	// Sort lists field names, "-" prefixed for descending.
	Sort []string

	Offset int
	Limit  int
}

// ErrNotFound is returned for updates/removes of ids that do not exist.
var ErrNotFound = errors.New("storage: record not found")

// Store is the persistence collaborator contract.
type Store interface {
	// Find returns the records of the collection matching the query.
	Find(ctx context.Context, collection string, q Query) ([]Record, error)

	// Create persists the record and returns the stored form.
	// The record must carry its id field.
	Create(ctx context.Context, collection string, rec Record) (Record, error)

	// Update applies the patch to the record with the given id and
	// returns the stored result.
	Update(ctx context.Context, collection string, id string, patch Record) (Record, error)

	// Remove physically deletes the record and returns its last form.
	Remove(ctx context.Context, collection string, id string) (Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, collection string, filter Filter) (int, error)

	// Close releases the underlying resources.
	Close() error
}

const (
	ModeMemory = "memory"
	ModeSQL    = "sql"
)

type Config struct {
	Mode string `conf:"mode" yaml:"mode" json:"mode"`

	// Dialect selects the sql driver: sqlite, postgres or mysql.
	Dialect string `conf:"dialect" yaml:"dialect" json:"dialect"`
	DSN     string `conf:"dsn" yaml:"dsn" json:"dsn"`
}

// NewFromConfig builds a store from the given config, defaulting to the
// memory adapter when no mode is set.
func NewFromConfig(cfg Config) (Store, error) {
	switch cfg.Mode {
	case ModeSQL:
		return NewSQLStore(cfg)
	case ModeMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: invalid mode: %s", cfg.Mode)
	}
}
