package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/forgehub/internal/contexts"
)

func TestMemberLookup(t *testing.T) {
	fx := newFixture(t)
	alice := accountCtx(t, "acc_alice")

	rec := createProject(t, fx, alice, "shared")
	id := rec["id"].(string)
	rawID, err := DecodeID("proj", id)
	require.NoError(t, err)

	// Promote bob to member directly in storage; members is hook-managed.
	_, err = fx.store.Update(context.Background(), "projects", rawID, Record{
		"members": []any{"acc_alice", "acc_bob"},
	})
	require.NoError(t, err)

	lookup := fx.projects.MemberLookup("owner", "members")

	t.Run("owner resolves", func(t *testing.T) {
		got, err := lookup(context.Background(), id, "acc_alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, id, got["id"])
	})

	t.Run("member resolves", func(t *testing.T) {
		got, err := lookup(context.Background(), id, "acc_bob")
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("outsider does not resolve", func(t *testing.T) {
		got, err := lookup(context.Background(), id, "acc_mallory")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("malformed id does not resolve", func(t *testing.T) {
		got, err := lookup(context.Background(), "proj_bogus", "acc_alice")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("soft deleted relation does not resolve", func(t *testing.T) {
		doomed := createProject(t, fx, alice, "closing")
		doomedID := doomed["id"].(string)

		_, err := fx.projects.Remove(alice, doomedID, Options{})
		require.NoError(t, err)

		got, err := lookup(context.Background(), doomedID, "acc_alice")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestOwnershipScope(t *testing.T) {
	scope := OwnershipScope("owner", "members")

	t.Run("anonymous context passes through", func(t *testing.T) {
		filter, err := scope.apply(context.Background(), Filter{"deletedAt": nil}, nil)
		require.NoError(t, err)
		assert.Equal(t, Filter{"deletedAt": nil}, filter)
	})

	t.Run("caller context narrows to owned or joined", func(t *testing.T) {
		ctx := contexts.WithActorID(context.Background(), "acc_alice")

		filter, err := scope.apply(ctx, Filter{}, nil)
		require.NoError(t, err)

		branches, ok := filter["$or"].([]Filter)
		require.True(t, ok)
		assert.Equal(t, []Filter{{"owner": "acc_alice"}, {"members": "acc_alice"}}, branches)
	})
}

func TestRelationScopeGate(t *testing.T) {
	fx := newFixture(t)
	alice := accountCtx(t, "acc_alice")
	bob := accountCtx(t, "acc_bob")

	project := createProject(t, fx, alice, "gated")
	projectID := project["id"].(string)

	task := createTask(t, fx, alice, projectID, "write docs")

	t.Run("member queries are pinned to the relation", func(t *testing.T) {
		recs, err := fx.tasks.Find(alice, Params{"project": projectID}, Options{})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, task["id"], recs[0]["id"])
	})

	t.Run("non member query is rejected with the relation id", func(t *testing.T) {
		_, err := fx.tasks.Find(bob, Params{"project": projectID}, Options{})
		require.True(t, IsNoPermission(err))

		e, _ := AsError(err)
		assert.Equal(t, map[string]any{"project": projectID}, e.Details)
	})

	t.Run("missing mandatory relation", func(t *testing.T) {
		_, err := fx.tasks.Find(alice, nil, Options{})
		require.True(t, IsValidation(err))

		vs := violations(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "required", vs[0].Type)
		assert.Equal(t, "project", vs[0].Field)
	})

	t.Run("non member create persists nothing", func(t *testing.T) {
		before, err := fx.store.Count(context.Background(), "tasks", nil)
		require.NoError(t, err)

		_, err = fx.tasks.Create(bob, Params{"project": projectID, "title": "sneak"})
		require.True(t, IsNoPermission(err))

		after, err := fx.store.Count(context.Background(), "tasks", nil)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("id operations honor the gate", func(t *testing.T) {
		opts := Options{Params: Params{"project": projectID}}

		got, err := fx.tasks.Get(alice, task["id"].(string), opts)
		require.NoError(t, err)
		assert.Equal(t, "write docs", got["title"])

		_, err = fx.tasks.Get(bob, task["id"].(string), opts)
		require.True(t, IsNoPermission(err))
	})

	t.Run("anonymous context passes the gate untouched", func(t *testing.T) {
		recs, err := fx.tasks.Find(context.Background(), Params{"project": projectID}, Options{})
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})
}

func TestValidateRelation(t *testing.T) {
	fx := newFixture(t)
	alice := accountCtx(t, "acc_alice")
	bob := accountCtx(t, "acc_bob")

	project := createProject(t, fx, alice, "refcheck")
	projectID := project["id"].(string)

	t.Run("assigning a foreign relation fails", func(t *testing.T) {
		other := createProject(t, fx, bob, "bobs")

		_, err := fx.tasks.Create(bob, Params{"project": other["id"].(string), "title": "mine"})
		require.NoError(t, err)

		_, err = fx.tasks.Create(bob, Params{"project": projectID, "title": "not mine"})
		require.True(t, IsNoPermission(err))
	})

	t.Run("non string reference is a validation failure", func(t *testing.T) {
		lookup := fx.projects.MemberLookup("owner", "members")
		validate := ValidateRelation("project", lookup)

		err := validate(HookContext{Ctx: alice}, 42)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reference id")
	})

	t.Run("dangling reference is a permission failure", func(t *testing.T) {
		_, err := fx.tasks.Create(alice, Params{"project": "proj_missing", "title": "orphan"})
		require.True(t, IsNoPermission(err))
	})
}
