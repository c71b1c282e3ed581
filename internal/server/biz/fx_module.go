package biz

import (
	"context"

	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/gc"
	"github.com/looplj/forgehub/internal/resolver"
)

var Module = fx.Module("biz",
	fx.Provide(NewRepoService),
	fx.Provide(NewCommitService),
	fx.Provide(NewAccountResolver),
	fx.Provide(func() gc.Collections {
		return gc.Collections{"repos", "commits"}
	}),
	fx.Invoke(func(*resolver.Static) {}),
	fx.Invoke(func(lc fx.Lifecycle, svc *CommitService) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				svc.Stop()
				return nil
			},
		})
	}),
)
