// Package export implements the attribute-driven export pipeline shared by
// all tools in the suite: attribute allowlists, admin-center endpoint tables,
// record projection, CSV sinks, and the per-resource/per-endpoint runner.
package export

import "sort"

// Record is a single directory or service object returned by a remote
// listing API, flattened to named fields. Values keep their source types:
// string, bool, int64, float64, time.Time, uuid.UUID, []string, []any, or a
// nested Record for object-valued fields.
type Record map[string]any

// FieldNames returns the record's field names in sorted order.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
