package biz

import (
	"strings"

	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/bus"
	"github.com/looplj/forgehub/internal/entity"
	"github.com/looplj/forgehub/internal/resolver"
	"github.com/looplj/forgehub/internal/storage"
)

type CommitServiceParams struct {
	fx.In

	Store     storage.Store
	Bus       bus.Bus
	Resolvers *resolver.Registry
	Repos     *RepoService
}

// CommitService owns the commits collection. Commits always belong to a
// repo; the repo scope gates every query on repo membership and the
// repos.removed subscription soft-deletes orphaned commits.
type CommitService struct {
	Engine *entity.Engine

	unsubscribe func()
}

func NewCommitService(params CommitServiceParams) (*CommitService, error) {
	repoLookup := params.Repos.MemberLookup()

	def := &entity.Definition{
		Name:     "commits",
		IDPrefix: "cmt",
		Fields: []*entity.Field{
			entity.NewField("repo").NotEmpty().Immutable().
				OnCreate(func(hc entity.HookContext) (any, error) {
					v, _ := hc.Params["repo"].(string)
					return v, nil
				}).
				Validate(entity.ValidateRelation("repo", repoLookup)).
				PopulateWith("repos"),
			entity.NewField("owner").ReadOnly().
				OnCreate(actorHook).
				PopulateWith("accounts", strings.Split(accountFields, ",")...),
			entity.NewField("name").Required().NotEmpty().Trim(),
			entity.NewField("tarball"),
			entity.NewField("status").Required().NotEmpty(),
			entity.NewField("hash").Required().NotEmpty(),
			entity.NewField("action").Required().NotEmpty(),
			entity.NewField("branch").Required().NotEmpty(),
			entity.NewField("commits").Required(),
			entity.NewField("added"),
			entity.NewField("removed"),
			entity.NewField("modified"),
			entity.NewField("options"),
			entity.NewField("createdAt").ReadOnly().OnCreate(nowHook),
			entity.NewField("updatedAt").ReadOnly().OnUpdate(nowHook),
			entity.NewField("deletedAt").ReadOnly().Hidden().OnRemove(nowHook),
		},
		Scopes: map[string]entity.Scope{
			"notDeleted": entity.Static(entity.Filter{"deletedAt": nil}),
			"repo":       entity.RelationScope("repo", repoLookup, true),
		},
		DefaultScopes: []string{"repo", "notDeleted"},
	}

	engine, err := entity.New(def, entity.Dependencies{
		Store:     params.Store,
		Bus:       params.Bus,
		Resolvers: params.Resolvers,
	})
	if err != nil {
		return nil, err
	}

	params.Resolvers.Register("commits", engine)

	unsubscribe, err := engine.CascadeOnRemoved("repos", "repo")
	if err != nil {
		return nil, err
	}

	return &CommitService{
		Engine:      engine,
		unsubscribe: unsubscribe,
	}, nil
}

func (s *CommitService) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
