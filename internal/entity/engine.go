// Package entity implements the declarative entity access framework:
// scoped queries, per-field lifecycle pipelines, cross-entity population
// and cascading removal, all over a narrow storage port.
package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplj/forgehub/internal/bus"
	"github.com/looplj/forgehub/internal/resolver"
	"github.com/looplj/forgehub/internal/storage"
)

// Dependencies are the collaborators of one engine, explicit composition
// instead of construction-time mixing.
type Dependencies struct {
	Store     storage.Store
	Bus       bus.Bus
	Resolvers *resolver.Registry

	// Config carries configuration values handed to field hooks.
	Config map[string]string
}

// Engine executes the operations of one entity definition. Every
// operation resolves scopes first, then touches storage, then runs
// field hooks (writes) or population (reads), in that order.
type Engine struct {
	def       *Definition
	store     storage.Store
	bus       bus.Bus
	resolvers *resolver.Registry
	config    map[string]string
}

func New(def *Definition, deps Dependencies) (*Engine, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}

	if deps.Store == nil {
		return nil, fmt.Errorf("entity: %s: store is required", def.Name)
	}

	return &Engine{
		def:       def,
		store:     deps.Store,
		bus:       deps.Bus,
		resolvers: deps.Resolvers,
		config:    deps.Config,
	}, nil
}

// Definition returns the engine's entity definition.
func (e *Engine) Definition() *Definition { return e.def }

// Options tune one operation.
type Options struct {
	// Scopes overrides the default scope list.
	Scopes []string

	// DisableScopes skips scoping entirely. Requires a scope bypass in
	// the context; reserved for trusted internal operations.
	DisableScopes bool

	// Populate names the foreign-reference fields to expand on reads.
	Populate []string

	// Params carries extra operation parameters for id-based operations,
	// e.g. the relation id an authorization scope keys on.
	Params Params

	// Fields projects the result. Empty means all visible fields.
	Fields []string

	Sort   []string
	Offset int
	Limit  int
}

// Page is the list result envelope.
type Page struct {
	Rows       []Record `json:"rows"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
}

func (e *Engine) hookContext(ctx context.Context, params Params, existing Record) HookContext {
	return HookContext{
		Ctx:      ctx,
		Params:   params,
		Config:   e.config,
		Existing: existing,
	}
}

// runPipeline applies every field descriptor for the transition and
// returns the patch to persist. All violations are collected before
// failing so nothing is persisted partially.
func (e *Engine) runPipeline(op Op, params Params, hc HookContext) (Record, error) {
	patch := Record{}

	var violations []Violation

	for _, f := range e.def.Fields {
		input, present := params[f.name]

		res, err := f.apply(op, input, present, hc)
		if err != nil {
			return nil, err
		}

		if res.violation != nil {
			violations = append(violations, *res.violation)
			continue
		}

		if res.set {
			patch[f.name] = res.value
		}
	}

	if len(violations) > 0 {
		return nil, NewValidationError(violations...)
	}

	return patch, nil
}

// Create validates and persists a new entity. Scope resolution runs
// first so authorization scopes can reject the write before any field
// work happens; the resulting filter does not constrain the insert.
func (e *Engine) Create(ctx context.Context, params Params) (Record, error) {
	if _, err := e.resolveScopes(ctx, Options{}, params); err != nil {
		return nil, err
	}

	patch, err := e.runPipeline(OpCreate, params, e.hookContext(ctx, params, nil))
	if err != nil {
		return nil, err
	}

	patch["id"] = NewID()

	stored, err := e.store.Create(ctx, e.def.Name, patch)
	if err != nil {
		return nil, err
	}

	return e.view(stored, Options{}), nil
}

// Get returns one entity by its external id, subject to scoping.
func (e *Engine) Get(ctx context.Context, id string, opts Options) (Record, error) {
	stored, _, err := e.fetch(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	out := e.view(stored, opts)

	if len(opts.Populate) > 0 {
		views := []Record{out}
		if err := e.populateRecords(ctx, views, opts.Populate); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Find returns the entities matching the query under the effective scopes.
func (e *Engine) Find(ctx context.Context, query Params, opts Options) ([]Record, error) {
	filter, err := e.queryFilter(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	stored, err := e.store.Find(ctx, e.def.Name, storage.Query{
		Filter: filter,
		Fields: opts.Fields,
		Sort:   opts.Sort,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	})
	if err != nil {
		return nil, err
	}

	views := make([]Record, len(stored))
	for i, rec := range stored {
		views[i] = e.view(rec, opts)
	}

	if len(opts.Populate) > 0 {
		if err := e.populateRecords(ctx, views, opts.Populate); err != nil {
			return nil, err
		}
	}

	return views, nil
}

// List wraps Find with a total count and page arithmetic.
func (e *Engine) List(ctx context.Context, query Params, page, pageSize int, opts Options) (*Page, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		pageSize = 10
	}

	opts.Offset = (page - 1) * pageSize
	opts.Limit = pageSize

	rows, err := e.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	total, err := e.Count(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	return &Page{
		Rows:       rows,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Count returns the number of entities matching the query under scopes.
func (e *Engine) Count(ctx context.Context, query Params, opts Options) (int, error) {
	filter, err := e.queryFilter(ctx, query, opts)
	if err != nil {
		return 0, err
	}

	return e.store.Count(ctx, e.def.Name, filter)
}

// Update applies the caller patch through the field pipeline and persists
// the surviving values.
func (e *Engine) Update(ctx context.Context, id string, params Params, opts Options) (Record, error) {
	stored, rawID, err := e.fetch(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	patch, err := e.runPipeline(OpUpdate, params, e.hookContext(ctx, params, stored))
	if err != nil {
		return nil, err
	}

	if len(patch) == 0 {
		return e.view(stored, opts), nil
	}

	updated, err := e.store.Update(ctx, e.def.Name, rawID, patch)
	if err != nil {
		return nil, err
	}

	return e.view(updated, opts), nil
}

// Remove soft-deletes the entity: remove hooks stamp deletedAt, the
// record stays in storage, and a removed event is published for
// dependent entities to cascade on. Removing an entity that is already
// soft-deleted is a no-op that keeps the original deletedAt; under
// default scopes such an entity is simply not found.
func (e *Engine) Remove(ctx context.Context, id string, opts Options) (Record, error) {
	stored, rawID, err := e.fetch(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	if stored["deletedAt"] != nil {
		return e.view(stored, opts), nil
	}

	patch, err := e.runPipeline(OpRemove, Params{}, e.hookContext(ctx, Params{}, stored))
	if err != nil {
		return nil, err
	}

	updated, err := e.store.Update(ctx, e.def.Name, rawID, patch)
	if err != nil {
		return nil, err
	}

	if e.bus != nil {
		event := RemovedEventName(e.def.Name)
		payload := RemovedEvent{Data: e.internalView(updated)}

		if err := e.bus.Publish(ctx, event, payload); err != nil {
			return nil, fmt.Errorf("entity: publish %s: %w", event, err)
		}
	}

	return e.view(updated, opts), nil
}

// Lookup queries by raw filter with scoping skipped. It backs internal
// relation checks (ownership lookups) and is not exposed over any
// caller-facing surface. Returns nil when nothing matches.
func (e *Engine) Lookup(ctx context.Context, filter Filter) (Record, error) {
	recs, err := e.store.Find(ctx, e.def.Name, storage.Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, nil
	}

	return e.internalView(recs[0]), nil
}

// Resolve implements resolver.Resolver so one entity engine can serve as
// the population target of another. Soft-deleted entities do not resolve.
func (e *Engine) Resolve(ctx context.Context, ids []string, fields []string) ([]storage.Record, error) {
	out := make([]storage.Record, len(ids))

	for i, encoded := range ids {
		rawID, err := DecodeID(e.def.IDPrefix, encoded)
		if err != nil {
			continue
		}

		recs, err := e.store.Find(ctx, e.def.Name, storage.Query{
			Filter: Filter{"id": rawID, "deletedAt": nil},
			Fields: fields,
			Limit:  1,
		})
		if err != nil {
			return nil, err
		}

		if len(recs) == 0 {
			continue
		}

		out[i] = e.view(recs[0], Options{Fields: fields})
	}

	return out, nil
}

// fetch loads one stored record by external id under the effective scopes.
func (e *Engine) fetch(ctx context.Context, id string, opts Options) (Record, string, error) {
	rawID, err := DecodeID(e.def.IDPrefix, id)
	if err != nil {
		return nil, "", NewNotFoundError(e.def.Name, id)
	}

	params := Params{"id": id}
	for k, v := range opts.Params {
		params[k] = v
	}

	filter, err := e.queryFilter(ctx, params, opts)
	if err != nil {
		return nil, "", err
	}

	filter["id"] = rawID

	recs, err := e.store.Find(ctx, e.def.Name, storage.Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, "", err
	}

	if len(recs) == 0 {
		return nil, "", NewNotFoundError(e.def.Name, id)
	}

	return recs[0], rawID, nil
}

// queryFilter combines resolved scopes with the declared-field
// predicates of the query parameters. Scope predicates win: a caller
// key that collides with a scope-produced key is dropped, so a query
// cannot widen what the scopes narrowed.
func (e *Engine) queryFilter(ctx context.Context, query Params, opts Options) (Filter, error) {
	filter, err := e.resolveScopes(ctx, opts, query)
	if err != nil {
		return nil, err
	}

	for k, v := range query {
		if _, scoped := filter[k]; scoped {
			continue
		}

		if e.def.field(k) != nil {
			filter[k] = v
		}
	}

	return filter, nil
}

// view converts a stored record to its external form: the id is encoded
// and hidden fields are stripped unless scoping is disabled.
func (e *Engine) view(stored Record, opts Options) Record {
	if opts.DisableScopes {
		return e.internalView(stored)
	}

	out := Record{}

	for k, v := range stored {
		if f := e.def.field(k); f != nil && f.hidden {
			continue
		}

		out[k] = v
	}

	e.encodeIDField(out)

	return out
}

// internalView keeps hidden fields; for trusted internal consumers only.
func (e *Engine) internalView(stored Record) Record {
	out := Record{}
	for k, v := range stored {
		out[k] = v
	}

	e.encodeIDField(out)

	return out
}

func (e *Engine) encodeIDField(rec Record) {
	if raw, ok := rec["id"].(string); ok {
		rec["id"] = EncodeID(e.def.IDPrefix, raw)
	}
}

// errInvalidPayload marks malformed event payloads in cascade handlers.
var errInvalidPayload = errors.New("entity: invalid event payload")
