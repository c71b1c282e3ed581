package entity

import (
	"context"

	"dario.cat/mergo"

	"github.com/looplj/forgehub/internal/authz"
)

// Scope is a named, composable query-filter fragment. Static scopes
// merge a fixed predicate; dynamic scopes derive one from the caller
// context and the operation parameters, or fail the whole operation.
type Scope interface {
	apply(ctx context.Context, filter Filter, params Params) (Filter, error)
}

// Static builds a scope that merges a fixed predicate into every query.
func Static(predicate Filter) Scope {
	return staticScope{predicate: predicate}
}

type staticScope struct {
	predicate Filter
}

func (s staticScope) apply(_ context.Context, filter Filter, _ Params) (Filter, error) {
	return mergeFilter(filter, s.predicate)
}

// Dynamic builds a scope from a function of the current filter, the
// caller context and the request parameters. Returning the filter
// unchanged is a pass-through; returning an error aborts the operation.
type Dynamic func(ctx context.Context, filter Filter, params Params) (Filter, error)

func (d Dynamic) apply(ctx context.Context, filter Filter, params Params) (Filter, error) {
	return d(ctx, filter, params)
}

// mergeFilter merges src predicates into dst. mergo skips empty values,
// so nil-valued predicates ("field is null") are carried over explicitly.
func mergeFilter(dst, src Filter) (Filter, error) {
	if dst == nil {
		dst = Filter{}
	}

	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return nil, err
	}

	for k, v := range src {
		if v == nil {
			dst[k] = nil
		}
	}

	return dst, nil
}

// resolveScopes combines the applicable scopes, in declared order, into
// one effective filter. With DisableScopes set, the caller must hold a
// scope bypass (trusted internal work); otherwise the request fails
// before any storage access.
func (e *Engine) resolveScopes(ctx context.Context, opts Options, params Params) (Filter, error) {
	if opts.DisableScopes {
		if !scopeBypassAllowed(ctx) {
			return nil, NewNoPermissionError("scope", e.def.Name)
		}

		return Filter{}, nil
	}

	names := opts.Scopes
	if names == nil {
		names = e.def.DefaultScopes
	}

	filter := Filter{}

	for _, name := range names {
		scope, ok := e.def.Scopes[name]
		if !ok {
			return nil, NewValidationError(Violation{Type: "unknown", Field: "scope", Message: name})
		}

		next, err := scope.apply(ctx, filter, params)
		if err != nil {
			return nil, err
		}

		if next != nil {
			filter = next
		}
	}

	return filter, nil
}

func scopeBypassAllowed(ctx context.Context) bool {
	if authz.IsBypassActive(ctx) {
		return true
	}

	p, ok := authz.GetPrincipal(ctx)

	return ok && (p.IsSystem() || p.IsTest())
}
