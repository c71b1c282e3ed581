package xtest

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp"
)

// jsonEqualizer normalizes both sides through a JSON round-trip so
// records built in Go literal form compare equal to records that went
// through a storage adapter.
func jsonEqualizer(x, y map[string]any) bool {
	return cmp.Equal(normalize(x), normalize(y))
}

func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}

	return out
}

// EqualRecords reports semantic equality of two records regardless of
// numeric representation (int vs float64 after decoding).
func EqualRecords(a, b map[string]any, opts ...cmp.Option) bool {
	allOpts := append(opts, cmp.Comparer(jsonEqualizer))
	return cmp.Equal(a, b, allOpts...)
}

// RecordDiff renders a human-readable diff of two normalized records.
func RecordDiff(a, b map[string]any) string {
	return cmp.Diff(normalize(a), normalize(b))
}
