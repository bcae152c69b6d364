package pipeline

import (
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// Canonical returns the pipeline as an ordered array of single-key stage
// objects for fingerprinting and diagnostics.
func (p Pipeline) Canonical() value.Object {
	stages := make(value.Array, 0, len(p.Stages))
	for _, s := range p.Stages {
		stages = append(stages, stageCanonical(s))
	}
	return value.Object{"stages": stages}
}

// Fingerprint returns a stable SHA-256 identity for p.
func (p Pipeline) Fingerprint() (string, error) {
	return value.Fingerprint(value.DomainPipeline, p.Canonical())
}

func stageCanonical(s Stage) value.Object {
	switch st := s.(type) {
	case Group:
		accs := make(value.Array, 0, len(st.Accumulators))
		for _, acc := range st.Accumulators {
			obj := value.Object{
				"name": value.String(acc.Name),
				"op":   value.String(string(acc.Op)),
			}
			if acc.Op != OpCount {
				obj["source"] = value.String(acc.Source.String())
			}
			accs = append(accs, obj)
		}
		return value.Object{"group": value.Object{
			"key":          keyCanonical(st.Key),
			"accumulators": accs,
		}}
	case Sort:
		return value.Object{"sort": query.SortCanonical(st.Keys)}
	case Limit:
		return value.Object{"limit": value.Int(st.N)}
	case Match:
		return value.Object{"match": st.Filter.Canonical()}
	default:
		return value.Object{}
	}
}

func keyCanonical(k KeyExpr) value.Value {
	switch key := k.(type) {
	case FieldKey:
		return value.Object{"field": value.String(key.Field.String())}
	case Derived:
		return value.Object{"expr": exprCanonical(key.Expr)}
	default:
		return value.Null{}
	}
}

func exprCanonical(e Expr) value.Value {
	switch x := e.(type) {
	case FieldRef:
		return value.Object{"field": value.String(x.Field.String())}
	case Const:
		return value.Object{"const": x.Value}
	case Binary:
		return value.Object{
			"op":   value.String(string(x.Op)),
			"args": value.Array{exprCanonical(x.Left), exprCanonical(x.Right)},
		}
	case FloorOf:
		return value.Object{
			"op":   value.String("floor"),
			"args": value.Array{exprCanonical(x.Arg)},
		}
	default:
		return value.Null{}
	}
}
