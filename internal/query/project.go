package query

import (
	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/value"
)

// Apply returns the projection of doc. doc is never modified.
//
// Include keeps the listed fields that exist, plus "_id" unless
// suppressed. Exclude drops the listed fields. Nested paths address
// nested objects.
func (p Projection) Apply(doc value.Object) value.Object {
	if p.IsEmpty() {
		return doc
	}

	if p.Mode == Include {
		out := make(value.Object, len(p.Fields)+1)
		if id, ok := doc[field.IDField]; ok && !p.SuppressID {
			out[field.IDField] = id
		}
		for _, f := range p.Fields {
			if v, ok := doc.Lookup(f.String()); ok {
				setPath(out, f.Segments(), v)
			}
		}
		return out
	}

	out := copyObject(doc)
	for _, f := range p.Fields {
		deletePath(out, f.Segments())
	}
	if p.SuppressID {
		delete(out, field.IDField)
	}
	return out
}

func setPath(obj value.Object, segs []string, v value.Value) {
	for _, seg := range segs[:len(segs)-1] {
		child, ok := obj[seg].(value.Object)
		if !ok {
			child = value.Object{}
			obj[seg] = child
		}
		obj = child
	}
	obj[segs[len(segs)-1]] = v
}

func deletePath(obj value.Object, segs []string) {
	for _, seg := range segs[:len(segs)-1] {
		child, ok := obj[seg].(value.Object)
		if !ok {
			return
		}
		obj = child
	}
	delete(obj, segs[len(segs)-1])
}

// copyObject copies nested objects so deletePath never reaches the input.
func copyObject(obj value.Object) value.Object {
	out := make(value.Object, len(obj))
	for k, v := range obj {
		if child, ok := v.(value.Object); ok {
			out[k] = copyObject(child)
			continue
		}
		out[k] = v
	}
	return out
}
