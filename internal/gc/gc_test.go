package gc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/forgehub/internal/pkg/xtime"
	"github.com/looplj/forgehub/internal/storage"
)

func newWorker(t *testing.T, cfg Config) (*Worker, storage.Store) {
	t.Helper()

	store := storage.NewMemoryStore()

	w := NewWorker(Params{
		Config:      cfg,
		Store:       store,
		Collections: Collections{"repos", "commits"},
	})

	t.Cleanup(func() {
		require.NoError(t, w.Stop(context.Background()))
	})

	return w, store
}

func TestRunPurgeNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	xtime.SetNowFunc(func() time.Time { return now })
	t.Cleanup(xtime.ResetNowFunc)

	retention := 30 * 24 * time.Hour
	w, store := newWorker(t, Config{Enabled: true, Retention: retention, BatchSize: 2})

	ctx := context.Background()

	expired := now.Add(-retention - time.Hour).UnixMilli()
	recent := now.Add(-time.Hour).UnixMilli()

	seed := []struct {
		collection string
		id         string
		deletedAt  any
	}{
		{"repos", "r1", expired},
		{"repos", "r2", recent},
		{"repos", "r3", nil},
		{"commits", "c1", expired},
		{"commits", "c2", expired},
		{"commits", "c3", expired},
		{"commits", "c4", nil},
	}

	for _, s := range seed {
		rec := storage.Record{"id": s.id}
		if s.deletedAt != nil {
			rec["deletedAt"] = s.deletedAt
		}

		_, err := store.Create(ctx, s.collection, rec)
		require.NoError(t, err)
	}

	require.NoError(t, w.RunPurgeNow(ctx))

	t.Run("expired soft-deleted records are purged", func(t *testing.T) {
		_, err := store.Remove(ctx, "repos", "r1")
		require.ErrorIs(t, err, storage.ErrNotFound)

		n, err := store.Count(ctx, "commits", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "batching sweeps past the batch size")
	})

	t.Run("recent and live records survive", func(t *testing.T) {
		n, err := store.Count(ctx, "repos", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		recs, err := store.Find(ctx, "repos", storage.Query{Filter: storage.Filter{"deletedAt": nil}})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "r3", recs[0]["id"])
	})
}

func TestPurgeCollectionBatching(t *testing.T) {
	w, store := newWorker(t, Config{BatchSize: 3})

	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		_, err := store.Create(ctx, "repos", storage.Record{"id": id, "deletedAt": int64(1)})
		require.NoError(t, err)
	}

	purged, err := w.purgeCollection(ctx, "repos", 100)
	require.NoError(t, err)
	assert.Equal(t, 7, purged)

	n, err := store.Count(ctx, "repos", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWorkerStart(t *testing.T) {
	t.Run("disabled worker schedules nothing", func(t *testing.T) {
		w, _ := newWorker(t, Config{Enabled: false})

		require.NoError(t, w.Start(context.Background()))
		assert.Nil(t, w.CancelFunc)
	})

	t.Run("enabled worker schedules the cron rule", func(t *testing.T) {
		w, _ := newWorker(t, Config{Enabled: true, CRON: "0 * * * *", Retention: time.Hour})

		require.NoError(t, w.Start(context.Background()))
		assert.NotNil(t, w.CancelFunc)
	})

	t.Run("invalid cron expression", func(t *testing.T) {
		w, _ := newWorker(t, Config{Enabled: true, CRON: "not a cron"})

		require.Error(t, w.Start(context.Background()))
	})
}
