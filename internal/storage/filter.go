package storage

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Matches reports whether the record satisfies every predicate of the filter.
func Matches(rec Record, filter Filter) bool {
	for field, want := range filter {
		if field == "$or" {
			if !matchAny(rec, want) {
				return false
			}

			continue
		}

		if !matchField(rec[field], want) {
			return false
		}
	}

	return true
}

// matchAny satisfies a $or branch list: at least one branch must match.
func matchAny(rec Record, branches any) bool {
	list, ok := branches.([]any)
	if !ok {
		if filters, ok := branches.([]Filter); ok {
			for _, f := range filters {
				if Matches(rec, f) {
					return true
				}
			}
		}

		return false
	}

	for _, branch := range list {
		f, ok := branch.(map[string]any)
		if ok && Matches(rec, f) {
			return true
		}
	}

	return false
}

func matchField(stored, want any) bool {
	switch want := want.(type) {
	case nil:
		return stored == nil
	case map[string]any:
		return matchOperators(stored, want)
	case []any:
		for _, w := range want {
			if valueEqual(stored, w) {
				return true
			}
		}

		return false
	default:
		return valueEqual(stored, want)
	}
}

func matchOperators(stored any, ops map[string]any) bool {
	for op, arg := range ops {
		switch op {
		case "$ne":
			if matchField(stored, arg) {
				return false
			}
		case "$in":
			args, ok := arg.([]any)
			if !ok || !matchField(stored, args) {
				return false
			}
		case "$nin":
			args, ok := arg.([]any)
			if !ok || matchField(stored, args) {
				return false
			}
		case "$exists":
			if cast.ToBool(arg) != (stored != nil) {
				return false
			}
		case "$lt", "$lte", "$gt", "$gte":
			if stored == nil || !compareOrdered(op, stored, arg) {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func compareOrdered(op string, stored, arg any) bool {
	sn, serr := cast.ToFloat64E(stored)
	an, aerr := cast.ToFloat64E(arg)

	var cmp int

	if serr == nil && aerr == nil {
		switch {
		case sn < an:
			cmp = -1
		case sn > an:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(cast.ToString(stored), cast.ToString(arg))
	}

	switch op {
	case "$lt":
		return cmp < 0
	case "$lte":
		return cmp <= 0
	case "$gt":
		return cmp > 0
	case "$gte":
		return cmp >= 0
	}

	return false
}

// valueEqual compares a stored value against a filter scalar. A stored
// list equals the scalar when it contains it, matching document store
// membership semantics.
func valueEqual(stored, want any) bool {
	if list, ok := stored.([]any); ok {
		if _, isList := want.([]any); !isList {
			for _, item := range list {
				if scalarEqual(item, want) {
					return true
				}
			}

			return false
		}
	}

	return scalarEqual(stored, want)
}

func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if an, err := cast.ToFloat64E(a); err == nil {
		if bn, err := cast.ToFloat64E(b); err == nil {
			return an == bn
		}
	}

	as, aerr := cast.ToStringE(a)
	bs, berr := cast.ToStringE(b)

	if aerr != nil || berr != nil {
		return false
	}

	return as == bs
}

// sortRecords orders records by the given sort fields in place.
func sortRecords(recs []Record, fields []string) {
	if len(fields) == 0 {
		return
	}

	sort.SliceStable(recs, func(i, j int) bool {
		for _, f := range fields {
			desc := strings.HasPrefix(f, "-")
			name := strings.TrimPrefix(f, "-")

			cmp := compareValues(recs[i][name], recs[j][name])
			if cmp == 0 {
				continue
			}

			if desc {
				return cmp > 0
			}

			return cmp < 0
		}

		return false
	})
}

func compareValues(a, b any) int {
	if an, err := cast.ToFloat64E(a); err == nil {
		if bn, err := cast.ToFloat64E(b); err == nil {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(cast.ToString(a), cast.ToString(b))
}

// project returns a copy of the record restricted to the given fields.
// The id field is always kept.
func project(rec Record, fields []string) Record {
	if len(fields) == 0 {
		return rec
	}

	out := Record{}
	if id, ok := rec["id"]; ok {
		out["id"] = id
	}

	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}

	return out
}

// paginate applies offset/limit to the already sorted records.
// Negative offsets are treated as zero.
func paginate(recs []Record, offset, limit int) []Record {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(recs) {
		return nil
	}

	recs = recs[offset:]

	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}

	return recs
}
