package entity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/looplj/forgehub/internal/authz"
	"github.com/looplj/forgehub/internal/log"
)

// RemovedEventName is the bus event emitted when an entity of the named
// type is removed.
func RemovedEventName(entityName string) string {
	return entityName + ".removed"
}

// RemovedEvent is the payload of a removed event.
type RemovedEvent struct {
	Data Record `json:"data"`
}

// CascadeOnRemoved subscribes the engine to the removed events of a
// parent entity and soft-deletes every dependent whose foreignKey
// references the removed id. The cascade is best effort: it runs on a
// detached system context so the remover disconnecting cannot cancel
// it, failures are aggregated and logged, and nothing is reported back
// to the emitter. A crash mid-cascade can leave orphans.
func (e *Engine) CascadeOnRemoved(parent, foreignKey string) (func(), error) {
	if e.bus == nil {
		return nil, fmt.Errorf("entity: %s: cascade requires a bus", e.def.Name)
	}

	if e.def.field(foreignKey) == nil {
		return nil, fmt.Errorf("entity: %s: unknown cascade foreign key %q", e.def.Name, foreignKey)
	}

	event := RemovedEventName(parent)

	unsubscribe := e.bus.Subscribe(event, func(_ context.Context, payload json.RawMessage) error {
		var ev RemovedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: %s: %w", errInvalidPayload, event, err)
		}

		parentID, _ := ev.Data["id"].(string)
		if parentID == "" {
			return fmt.Errorf("%w: %s: missing id", errInvalidPayload, event)
		}

		ctx := authz.WithSystemBypass(context.Background(), "cascade-remove")
		e.cascadeRemove(ctx, parentID, foreignKey)

		return nil
	})

	return unsubscribe, nil
}

func (e *Engine) cascadeRemove(ctx context.Context, parentID, foreignKey string) {
	dependents, err := e.Find(ctx, Params{foreignKey: parentID}, Options{
		DisableScopes: true,
		Fields:        []string{"id"},
	})
	if err != nil {
		log.Error(ctx, "unable to load dependents for cascade",
			log.String("entity", e.def.Name),
			log.String("parent", parentID),
			log.Cause(err),
		)

		return
	}

	var group multierror.Group

	for _, dep := range dependents {
		id, ok := dep["id"].(string)
		if !ok {
			continue
		}

		group.Go(func() error {
			_, err := e.Remove(ctx, id, Options{DisableScopes: true})
			return err
		})
	}

	if err := group.Wait().ErrorOrNil(); err != nil {
		log.Error(ctx, "unable to remove dependents of removed parent",
			log.String("entity", e.def.Name),
			log.String("parent", parentID),
			log.Cause(err),
		)

		return
	}

	log.Debug(ctx, "cascade removed dependents",
		log.String("entity", e.def.Name),
		log.String("parent", parentID),
		log.Int("count", len(dependents)),
	)
}
