package entity

import (
	"context"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/looplj/forgehub/internal/storage"
)

// populateRecords replaces the stored reference values of the requested
// fields with the objects fetched from their resolvers. Fields fetch
// concurrently and each field batches all references of the record set
// into one resolver call; results join back by original position and
// multiplicity. Any resolver failure fails the whole operation, since a
// partially populated entity cannot convey its own degradation.
func (e *Engine) populateRecords(ctx context.Context, recs []Record, fields []string) error {
	if len(recs) == 0 || len(fields) == 0 {
		return nil
	}

	type assignment struct {
		field  string
		lists  bool
		lookup map[string]storage.Record
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]assignment, len(fields))

	for i, name := range fields {
		i, name := i, name

		f := e.def.field(name)
		if f == nil || f.populate == nil {
			return NewValidationError(Violation{
				Type:    "populate",
				Field:   name,
				Message: "field is not populatable",
			})
		}

		if e.resolvers == nil {
			return NewValidationError(Violation{
				Type:    "populate",
				Field:   name,
				Message: "no resolvers configured",
			})
		}

		res, err := e.resolvers.Get(f.populate.Resolver)
		if err != nil {
			return err
		}

		g.Go(func() error {
			ids := lo.Uniq(referenceIDs(recs, name))
			if len(ids) == 0 {
				results[i] = assignment{field: name}
				return nil
			}

			objects, err := res.Resolve(gctx, ids, f.populate.Fields)
			if err != nil {
				return err
			}

			lookup := make(map[string]storage.Record, len(ids))
			for j, id := range ids {
				if j < len(objects) && objects[j] != nil {
					lookup[id] = objects[j]
				}
			}

			results[i] = assignment{field: name, lookup: lookup}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Join back sequentially; concurrent writes into the record maps
	// would race even across distinct fields.
	for _, a := range results {
		if a.lookup == nil {
			continue
		}

		for _, rec := range recs {
			switch ref := rec[a.field].(type) {
			case string:
				rec[a.field] = orNil(a.lookup[ref])
			case []any:
				objs := make([]any, len(ref))

				for j, item := range ref {
					id, ok := item.(string)
					if !ok {
						continue
					}

					objs[j] = orNil(a.lookup[id])
				}

				rec[a.field] = objs
			}
		}
	}

	return nil
}

// referenceIDs collects the reference ids of one field across the batch.
func referenceIDs(recs []Record, field string) []string {
	var ids []string

	for _, rec := range recs {
		switch ref := rec[field].(type) {
		case string:
			ids = append(ids, ref)
		case []any:
			for _, item := range ref {
				if id, ok := item.(string); ok {
					ids = append(ids, id)
				}
			}
		}
	}

	return ids
}

// orNil converts a missing lookup entry to a typed nil-free any value.
func orNil(rec storage.Record) any {
	if rec == nil {
		return nil
	}

	return rec
}
