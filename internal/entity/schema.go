package entity

import (
	"fmt"

	"github.com/looplj/forgehub/internal/storage"
)

// Record is one entity in its map form.
type Record = storage.Record

// Filter is a structural storage predicate.
type Filter = storage.Filter

// Params are the raw parameters of one operation.
type Params = map[string]any

// Definition declares one entity type: its collection, external id
// prefix, field descriptors and the named scopes applied to queries.
type Definition struct {
	// Name is the collection name, also used in events ("repos.removed").
	Name string

	// IDPrefix tags external ids, e.g. "repo" for repo_… ids.
	IDPrefix string

	Fields []*Field

	// Scopes declares the named query-filter fragments.
	Scopes map[string]Scope

	// DefaultScopes lists the scopes applied automatically, in order.
	// Declaration order is the contract: an authorization scope must be
	// listed no later than the fragments relying on it.
	DefaultScopes []string
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("entity: definition name is required")
	}

	if d.IDPrefix == "" {
		return fmt.Errorf("entity: definition id prefix is required")
	}

	seen := map[string]bool{}

	for _, f := range d.Fields {
		if f.name == "" {
			return fmt.Errorf("entity: %s: unnamed field", d.Name)
		}

		if seen[f.name] {
			return fmt.Errorf("entity: %s: duplicate field %q", d.Name, f.name)
		}

		seen[f.name] = true
	}

	for _, name := range d.DefaultScopes {
		if _, ok := d.Scopes[name]; !ok {
			return fmt.Errorf("entity: %s: unknown default scope %q", d.Name, name)
		}
	}

	return nil
}

func (d *Definition) field(name string) *Field {
	for _, f := range d.Fields {
		if f.name == name {
			return f
		}
	}

	return nil
}
