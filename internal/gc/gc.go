package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/zhenzou/executors"
	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/authz"
	"github.com/looplj/forgehub/internal/log"
	"github.com/looplj/forgehub/internal/pkg/xtime"
	"github.com/looplj/forgehub/internal/storage"
)

type Config struct {
	Enabled bool   `conf:"enabled" yaml:"enabled" json:"enabled"`
	CRON    string `conf:"cron" yaml:"cron" json:"cron"`

	// Retention is how long soft-deleted records are kept before they
	// are purged from storage.
	Retention time.Duration `conf:"retention" yaml:"retention" json:"retention"`

	BatchSize int `conf:"batch_size" yaml:"batch_size" json:"batch_size"`
}

// Collections lists the storage collections the purge sweeps over.
type Collections []string

// Worker permanently removes soft-deleted records once their retention
// window has passed.
type Worker struct {
	Store       storage.Store
	Collections Collections
	Executor    executors.ScheduledExecutor
	Config      Config
	CancelFunc  context.CancelFunc
}

type Params struct {
	fx.In

	Config      Config
	Store       storage.Store
	Collections Collections
}

func NewWorker(params Params) *Worker {
	return &Worker{
		Store:       params.Store,
		Collections: params.Collections,
		Executor:    executors.NewPoolScheduleExecutor(executors.WithMaxConcurrent(1)),
		Config:      params.Config,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	if !w.Config.Enabled {
		log.Info(ctx, "gc worker disabled")
		return nil
	}

	cancelFunc, err := w.Executor.ScheduleAtCronRate(
		executors.RunnableFunc(w.runPurgeWithSystemContext),
		executors.CRONRule{Expr: w.Config.CRON},
	)
	if err != nil {
		return err
	}

	w.CancelFunc = cancelFunc

	log.Info(ctx, "gc worker started",
		log.String("cron", w.Config.CRON),
		log.Duration("retention", w.Config.Retention),
		log.Strings("collections", w.Collections),
	)

	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	if w.CancelFunc != nil {
		w.CancelFunc()
	}

	return w.Executor.Shutdown(ctx)
}

func (w *Worker) runPurgeWithSystemContext(ctx context.Context) {
	ctx = authz.WithSystemBypass(ctx, "gc-purge")
	w.runPurge(ctx)
}

func (w *Worker) runPurge(ctx context.Context) {
	log.Info(ctx, "starting purge of expired soft-deleted records")

	cutoff := xtime.UTCNow().Add(-w.Config.Retention).UnixMilli()

	for _, collection := range w.Collections {
		purged, err := w.purgeCollection(ctx, collection, cutoff)
		if err != nil {
			log.Error(ctx, "failed to purge collection",
				log.String("collection", collection),
				log.Cause(err),
			)

			continue
		}

		if purged > 0 {
			log.Info(ctx, "purged expired records",
				log.String("collection", collection),
				log.Int("purged_count", purged),
				log.Int64("cutoff", cutoff),
			)
		}
	}

	log.Info(ctx, "purge completed")
}

// purgeCollection removes expired records in batches until none remain.
func (w *Worker) purgeCollection(ctx context.Context, collection string, cutoff int64) (int, error) {
	batchSize := w.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	filter := storage.Filter{"deletedAt": map[string]any{"$lt": cutoff}}
	totalPurged := 0

	for {
		recs, err := w.Store.Find(ctx, collection, storage.Query{
			Filter: filter,
			Fields: []string{"id"},
			Limit:  batchSize,
		})
		if err != nil {
			return totalPurged, fmt.Errorf("failed to query expired records: %w", err)
		}

		if len(recs) == 0 {
			break
		}

		for _, rec := range recs {
			id, _ := rec["id"].(string)

			_, err := w.Store.Remove(ctx, collection, id)
			if err != nil {
				return totalPurged, fmt.Errorf("failed to remove record %s: %w", id, err)
			}

			totalPurged++
		}

		log.Debug(ctx, "purged batch of records",
			log.String("collection", collection),
			log.Int("batch_size", len(recs)),
			log.Int("total_purged", totalPurged),
		)
	}

	return totalPurged, nil
}

// RunPurgeNow manually triggers the purge process.
func (w *Worker) RunPurgeNow(ctx context.Context) error {
	w.runPurgeWithSystemContext(ctx)
	return nil
}
