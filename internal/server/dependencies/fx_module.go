package dependencies

import (
	"context"

	"github.com/zhenzou/executors"
	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/bus"
	"github.com/looplj/forgehub/internal/log"
	"github.com/looplj/forgehub/internal/resolver"
	"github.com/looplj/forgehub/internal/storage"
)

var Module = fx.Module("dependencies",
	fx.Provide(log.New),
	fx.Provide(storage.NewFromConfig),
	fx.Provide(bus.NewFromConfig),
	fx.Provide(resolver.NewRegistry),
	fx.Provide(NewExecutors),
	fx.Invoke(func(lc fx.Lifecycle, store storage.Store, b bus.Bus) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if err := b.Close(); err != nil {
					return err
				}

				return store.Close()
			},
		})
	}),
	fx.Invoke(func(lc fx.Lifecycle, executor executors.ScheduledExecutor) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return executor.Shutdown(ctx)
			},
		})
	}),
)
