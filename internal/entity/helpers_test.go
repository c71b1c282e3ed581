package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/looplj/forgehub/internal/authz"
	"github.com/looplj/forgehub/internal/bus"
	"github.com/looplj/forgehub/internal/contexts"
	"github.com/looplj/forgehub/internal/resolver"
	"github.com/looplj/forgehub/internal/storage"
)

// The tests run against a small project/task domain: projects carry
// ownership, tasks reference their project and are gated on membership
// in it. Timestamps come from fixed stamp hooks so records are stable.

const (
	createdStamp int64 = 1000
	updatedStamp int64 = 2000
	removedStamp int64 = 3000
)

type fixture struct {
	store     storage.Store
	bus       bus.Bus
	resolvers *resolver.Registry
	accounts  *resolver.Static
	projects  *Engine
	tasks     *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	b := bus.NewMemoryBus()
	reg := resolver.NewRegistry()

	projects, err := New(projectDef(), Dependencies{Store: store, Bus: b, Resolvers: reg})
	require.NoError(t, err)
	reg.Register("projects", projects)

	tasks, err := New(taskDef(projects), Dependencies{Store: store, Bus: b, Resolvers: reg})
	require.NoError(t, err)
	reg.Register("tasks", tasks)

	accounts := resolver.NewStatic()
	accounts.Seed("acc_alice", storage.Record{"id": "acc_alice", "name": "Alice"})
	accounts.Seed("acc_bob", storage.Record{"id": "acc_bob", "name": "Bob"})
	reg.Register("accounts", accounts)

	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})

	return &fixture{
		store:     store,
		bus:       b,
		resolvers: reg,
		accounts:  accounts,
		projects:  projects,
		tasks:     tasks,
	}
}

func projectDef() *Definition {
	return &Definition{
		Name:     "projects",
		IDPrefix: "proj",
		Fields: []*Field{
			NewField("name").Required().NotEmpty().Immutable().Trim().Lowercase(),
			NewField("owner").ReadOnly().OnCreate(actorHook),
			NewField("members").ReadOnly().OnCreate(actorListHook),
			NewField("secret").Hidden(),
			NewField("createdAt").ReadOnly().OnCreate(stampHook(createdStamp)),
			NewField("updatedAt").ReadOnly().OnUpdate(stampHook(updatedStamp)),
			NewField("deletedAt").ReadOnly().Hidden().OnRemove(stampHook(removedStamp)),
		},
		Scopes: map[string]Scope{
			"notDeleted": Static(Filter{"deletedAt": nil}),
			"membership": OwnershipScope("owner", "members"),
		},
		DefaultScopes: []string{"membership", "notDeleted"},
	}
}

func taskDef(projects *Engine) *Definition {
	lookup := projects.MemberLookup("owner", "members")

	return &Definition{
		Name:     "tasks",
		IDPrefix: "task",
		Fields: []*Field{
			NewField("project").Required().NotEmpty().Immutable().
				Validate(ValidateRelation("project", lookup)).
				PopulateWith("projects"),
			NewField("title").Required().NotEmpty().Trim(),
			NewField("assignee").PopulateWith("accounts", "id", "name"),
			NewField("reviewers").PopulateWith("accounts", "id", "name"),
			NewField("createdAt").ReadOnly().OnCreate(stampHook(createdStamp)),
			NewField("deletedAt").ReadOnly().Hidden().OnRemove(stampHook(removedStamp)),
		},
		Scopes: map[string]Scope{
			"notDeleted": Static(Filter{"deletedAt": nil}),
			"project":    RelationScope("project", lookup, true),
		},
		DefaultScopes: []string{"project", "notDeleted"},
	}
}

func stampHook(ts int64) Hook {
	return func(HookContext) (any, error) {
		return ts, nil
	}
}

func actorHook(hc HookContext) (any, error) {
	actor, ok := contexts.GetActorID(hc.Ctx)
	if !ok {
		return nil, nil
	}

	return actor, nil
}

func actorListHook(hc HookContext) (any, error) {
	actor, ok := contexts.GetActorID(hc.Ctx)
	if !ok {
		return []any{}, nil
	}

	return []any{actor}, nil
}

func accountCtx(t *testing.T, id string) context.Context {
	t.Helper()

	ctx, err := authz.NewAccountContext(context.Background(), id)
	require.NoError(t, err)

	return contexts.WithActorID(ctx, id)
}

func bypassCtx() context.Context {
	return authz.WithSystemBypass(context.Background(), "test")
}

func createProject(t *testing.T, fx *fixture, ctx context.Context, name string) Record {
	t.Helper()

	rec, err := fx.projects.Create(ctx, Params{"name": name})
	require.NoError(t, err)

	return rec
}

func createTask(t *testing.T, fx *fixture, ctx context.Context, project, title string) Record {
	t.Helper()

	rec, err := fx.tasks.Create(ctx, Params{"project": project, "title": title})
	require.NoError(t, err)

	return rec
}

func violations(t *testing.T, err error) []Violation {
	t.Helper()

	e, ok := AsError(err)
	require.True(t, ok, "expected a framework error, got %v", err)

	vs, ok := e.Details.([]Violation)
	require.True(t, ok, "expected violation details, got %#v", e.Details)

	return vs
}
