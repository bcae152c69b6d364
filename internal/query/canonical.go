package query

import (
	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/value"
)

// Canonical returns the descriptor as a value.Object for fingerprinting and
// diagnostics. Slices keep their order; only object keys are sorted.
func (q Query) Canonical() value.Object {
	proj := value.Object{
		"fields":      pathArray(q.Projection.Fields),
		"suppress_id": value.Bool(q.Projection.SuppressID),
	}
	if q.Projection.Mode != "" {
		proj["mode"] = value.String(string(q.Projection.Mode))
	}

	return value.Object{
		"filter":     q.Filter.Canonical(),
		"projection": proj,
		"sort":       SortCanonical(q.Sort),
		"skip":       value.Int(q.Page.Skip),
		"limit":      value.Int(q.Page.Limit),
	}
}

// Fingerprint returns a stable SHA-256 identity for q.
// Identical builder call sequences give identical fingerprints.
func (q Query) Fingerprint() (string, error) {
	return value.Fingerprint(value.DomainQuery, q.Canonical())
}

// Canonical returns the filter as an ordered array of conditions.
func (f Filter) Canonical() value.Array {
	out := make(value.Array, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		ops := make(value.Array, 0, len(c.Comparisons))
		for _, cmp := range c.Comparisons {
			ops = append(ops, value.Object{
				"op":    value.String(string(cmp.Op)),
				"value": cmp.Value,
			})
		}
		out = append(out, value.Object{
			"field": value.String(c.Field.String()),
			"ops":   ops,
		})
	}
	return out
}

// SortCanonical renders sort keys as [{field, dir}] in order.
func SortCanonical(keys []field.SortKey) value.Array {
	out := make(value.Array, 0, len(keys))
	for _, k := range keys {
		out = append(out, value.Object{
			"field": value.String(k.Field.String()),
			"dir":   value.Int(int64(k.Direction)),
		})
	}
	return out
}

func pathArray(paths []field.Path) value.Array {
	out := make(value.Array, 0, len(paths))
	for _, p := range paths {
		out = append(out, value.String(p.String()))
	}
	return out
}
