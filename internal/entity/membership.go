package entity

import (
	"context"
	"fmt"

	"github.com/looplj/forgehub/internal/contexts"
)

// RelationLookup resolves a related entity by external id, restricted to
// records the member owns or belongs to. A nil record means no access.
type RelationLookup func(ctx context.Context, id, member string) (Record, error)

// MemberLookup builds a RelationLookup over this engine: the related
// entity must exist, not be soft-deleted, and carry the member in its
// owner or member fields. This is the remote-lookup pattern backing both
// the authorization gate and reference validation.
func (e *Engine) MemberLookup(ownerField, membersField string) RelationLookup {
	return func(ctx context.Context, id, member string) (Record, error) {
		rawID, err := DecodeID(e.def.IDPrefix, id)
		if err != nil {
			return nil, nil
		}

		filter := Filter{"id": rawID, "deletedAt": nil}

		if member != "" {
			filter["$or"] = []Filter{
				{ownerField: member},
				{membersField: member},
			}
		}

		return e.Lookup(ctx, filter)
	}
}

// OwnershipScope narrows queries to entities the caller owns or is a
// member of. Without a caller context the query passes through
// unchanged (storage-adapter internal calls).
func OwnershipScope(ownerField, membersField string) Scope {
	return Dynamic(func(ctx context.Context, filter Filter, _ Params) (Filter, error) {
		actor, ok := contexts.GetActorID(ctx)
		if !ok {
			return filter, nil
		}

		return mergeFilter(filter, Filter{
			"$or": []Filter{
				{ownerField: actor},
				{membersField: actor},
			},
		})
	})
}

// RelationScope is the authorization gate: when the operation names the
// relation, the caller must be a member or owner of the related entity,
// and the query is pinned to it. A missing relation is only an error
// when the relation is mandatory for the entity's operations; optional
// relations fall through to list-all-accessible semantics upstream.
func RelationScope(relation string, lookup RelationLookup, required bool) Scope {
	return Dynamic(func(ctx context.Context, filter Filter, params Params) (Filter, error) {
		actor, ok := contexts.GetActorID(ctx)
		if !ok {
			return filter, nil
		}

		id, present := params[relation].(string)
		if !present || id == "" {
			if required {
				return nil, NewRequiredError(relation)
			}

			return filter, nil
		}

		related, err := lookup(ctx, id, actor)
		if err != nil {
			return nil, err
		}

		if related == nil {
			return nil, NewNoPermissionError(relation, id)
		}

		return mergeFilter(filter, Filter{relation: id})
	})
}

// ValidateRelation vets a foreign-reference value with the same
// ownership check the gate uses: assigning a reference the caller has
// no membership in fails validation.
func ValidateRelation(relation string, lookup RelationLookup) Validator {
	return func(hc HookContext, value any) error {
		id, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a reference id", relation)
		}

		actor, _ := contexts.GetActorID(hc.Ctx)

		related, err := lookup(hc.Ctx, id, actor)
		if err != nil {
			return err
		}

		if related == nil {
			return NewNoPermissionError(relation, id)
		}

		return nil
	}
}
