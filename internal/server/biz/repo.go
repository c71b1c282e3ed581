package biz

import (
	"fmt"
	"strings"

	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/bus"
	"github.com/looplj/forgehub/internal/contexts"
	"github.com/looplj/forgehub/internal/entity"
	"github.com/looplj/forgehub/internal/pkg/xtime"
	"github.com/looplj/forgehub/internal/resolver"
	"github.com/looplj/forgehub/internal/storage"
)

// Config carries the business-level settings handed to field hooks.
type Config struct {
	// GitURL is the host repositories are cloned from, used to derive
	// the repo url on creation.
	GitURL string `conf:"git_url" yaml:"git_url" json:"git_url"`
}

const accountFields = "id,username,fullName,avatar"

type RepoServiceParams struct {
	fx.In

	Store     storage.Store
	Bus       bus.Bus
	Resolvers *resolver.Registry
	Config    Config
}

// RepoService owns the repos collection.
type RepoService struct {
	Engine *entity.Engine
}

func NewRepoService(params RepoServiceParams) (*RepoService, error) {
	def := &entity.Definition{
		Name:     "repos",
		IDPrefix: "repo",
		Fields: []*entity.Field{
			entity.NewField("name").Required().NotEmpty().Immutable().Lowercase().Trim(),
			entity.NewField("url").ReadOnly().OnCreate(repoURLHook),
			entity.NewField("commits").ReadOnly().
				OnCreate(func(entity.HookContext) (any, error) { return []any{}, nil }).
				PopulateWith("commits"),
			entity.NewField("owner").ReadOnly().
				OnCreate(actorHook).
				PopulateWith("accounts", strings.Split(accountFields, ",")...),
			entity.NewField("members").ReadOnly().OnCreate(actorListHook),
			entity.NewField("options"),
			entity.NewField("createdAt").ReadOnly().OnCreate(nowHook),
			entity.NewField("updatedAt").ReadOnly().OnUpdate(nowHook),
			entity.NewField("deletedAt").ReadOnly().Hidden().OnRemove(nowHook),
		},
		Scopes: map[string]entity.Scope{
			"notDeleted": entity.Static(entity.Filter{"deletedAt": nil}),
			"membership": entity.OwnershipScope("owner", "members"),
		},
		DefaultScopes: []string{"membership", "notDeleted"},
	}

	engine, err := entity.New(def, entity.Dependencies{
		Store:     params.Store,
		Bus:       params.Bus,
		Resolvers: params.Resolvers,
		Config:    map[string]string{"repos.git.url": params.Config.GitURL},
	})
	if err != nil {
		return nil, err
	}

	params.Resolvers.Register("repos", engine)

	return &RepoService{Engine: engine}, nil
}

// MemberLookup exposes the owner-or-member repo lookup backing the
// commits authorization gate.
func (s *RepoService) MemberLookup() entity.RelationLookup {
	return s.Engine.MemberLookup("owner", "members")
}

// repoURLHook derives the clone url from the configured git host and
// the repo name.
func repoURLHook(hc entity.HookContext) (any, error) {
	host := hc.Config["repos.git.url"]
	if host == "" {
		host = "git.forgehub.dev"
	}

	name, _ := hc.Params["name"].(string)
	name = strings.ToLower(strings.TrimSpace(name))

	return fmt.Sprintf("https://%s/%s.git", host, name), nil
}

func actorHook(hc entity.HookContext) (any, error) {
	actor, ok := contexts.GetActorID(hc.Ctx)
	if !ok {
		return nil, nil
	}

	return actor, nil
}

func actorListHook(hc entity.HookContext) (any, error) {
	actor, ok := contexts.GetActorID(hc.Ctx)
	if !ok {
		return []any{}, nil
	}

	return []any{actor}, nil
}

func nowHook(entity.HookContext) (any, error) {
	return xtime.NowMilli(), nil
}
