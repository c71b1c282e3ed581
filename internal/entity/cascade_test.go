package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascadeOnRemoved(t *testing.T) {
	fx := newFixture(t)
	alice := accountCtx(t, "acc_alice")

	unsubscribe, err := fx.tasks.CascadeOnRemoved("projects", "project")
	require.NoError(t, err)
	t.Cleanup(unsubscribe)

	doomed := createProject(t, fx, alice, "doomed")
	doomedID := doomed["id"].(string)

	kept := createProject(t, fx, alice, "kept")
	keptID := kept["id"].(string)

	createTask(t, fx, alice, doomedID, "one")
	createTask(t, fx, alice, doomedID, "two")
	survivor := createTask(t, fx, alice, keptID, "three")

	_, err = fx.projects.Remove(alice, doomedID, Options{})
	require.NoError(t, err)

	deletedCount := func(project string) int {
		recs, err := fx.tasks.Find(bypassCtx(), Params{"project": project}, Options{DisableScopes: true})
		require.NoError(t, err)

		n := 0
		for _, rec := range recs {
			if rec["deletedAt"] != nil {
				n++
			}
		}

		return n
	}

	t.Run("dependents are soft deleted", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return deletedCount(doomedID) == 2
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("unrelated dependents survive", func(t *testing.T) {
		recs, err := fx.tasks.Find(alice, Params{"project": keptID}, Options{})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, survivor["id"], recs[0]["id"])
	})

	t.Run("malformed event payloads are contained", func(t *testing.T) {
		err := fx.bus.Publish(context.Background(), RemovedEventName("projects"), map[string]any{"data": map[string]any{}})
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)

		assert.Equal(t, 0, deletedCount(keptID))
	})

	t.Run("unsubscribe stops the cascade", func(t *testing.T) {
		unsubscribe()

		_, err := fx.projects.Remove(alice, keptID, Options{})
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)

		assert.Equal(t, 0, deletedCount(keptID))
	})
}

func TestCascadeOnRemovedConfiguration(t *testing.T) {
	fx := newFixture(t)

	t.Run("unknown foreign key", func(t *testing.T) {
		_, err := fx.tasks.CascadeOnRemoved("projects", "nonsense")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nonsense")
	})

	t.Run("requires a bus", func(t *testing.T) {
		busless, err := New(projectDef(), Dependencies{Store: fx.store})
		require.NoError(t, err)

		_, err = busless.CascadeOnRemoved("projects", "name")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bus")
	})
}

func TestRemovedEventName(t *testing.T) {
	assert.Equal(t, "projects.removed", RemovedEventName("projects"))
}
