package catalog

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// locator records where an entry was declared.
type locator struct {
	pos  token.Pos
	file string
	line int
}

func (l locator) fail(code string, err error, format string, args ...any) *LoadError {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &LoadError{Code: code, Message: msg, Pos: l.pos, File: l.file, Line: l.line, Err: err}
}

// assembler compiles decoded entries into a Catalog. Both decoders feed
// it the same way, so CUE and YAML catalogs obey identical rules.
type assembler struct {
	cat               *Catalog
	defaultCollection string
	seen              map[string]bool
}

func newAssembler(source string) *assembler {
	return &assembler{
		cat:  &Catalog{Source: source},
		seen: make(map[string]bool),
	}
}

// add decodes one entry with decode, compiles it and records it.
func (a *assembler) add(kind Kind, name string, loc locator, decode func(any) error) error {
	if a.seen[name] {
		return loc.fail(ErrCodeDuplicateEntry, nil, "%s.%s: entry name already used", kind, name)
	}

	entry := Entry{Name: name, Kind: kind}
	var collection string
	var err error
	decodeErr := func(e error) error {
		return loc.fail(ErrCodeDecodeFailed, e, "%s.%s", kind, name)
	}

	switch kind {
	case KindFind:
		var src findSource
		if e := decode(&src); e != nil {
			return decodeErr(e)
		}
		collection, entry.Explain = src.Collection, src.Explain
		entry.Query, err = compileFind(src)
	case KindAggregate:
		var src aggregateSource
		if e := decode(&src); e != nil {
			return decodeErr(e)
		}
		collection = src.Collection
		entry.Pipeline, err = compileAggregate(src)
	case KindIndex:
		var src indexSource
		if e := decode(&src); e != nil {
			return decodeErr(e)
		}
		collection = src.Collection
		entry.Index, err = compileIndex(src)
	case KindUpdate:
		var src updateSource
		if e := decode(&src); e != nil {
			return decodeErr(e)
		}
		collection = src.Collection
		entry.Update, err = compileUpdate(src)
	case KindDelete:
		var src deleteSource
		if e := decode(&src); e != nil {
			return decodeErr(e)
		}
		collection = src.Collection
		if len(src.Filter) == 0 {
			return loc.fail(ErrCodeInvalidEntry, nil, "%s.%s: delete needs a filter", kind, name)
		}
		entry.Filter, err = compileFilter(src.Filter)
	default:
		return loc.fail(ErrCodeDecodeFailed, nil, "unknown section %q", kind)
	}
	if err != nil {
		return loc.fail(ErrCodeInvalidEntry, err, "%s.%s", kind, name)
	}

	if collection == "" {
		collection = a.defaultCollection
	}
	if collection == "" {
		return loc.fail(ErrCodeMissingCollection, nil, "%s.%s: no collection on the entry or the catalog", kind, name)
	}
	entry.Collection = collection

	a.seen[name] = true
	a.cat.Entries = append(a.cat.Entries, entry)
	return nil
}

func (a *assembler) finish() (*Catalog, error) {
	if len(a.cat.Entries) == 0 {
		return nil, &LoadError{Code: ErrCodeEmpty, Message: fmt.Sprintf("no entries found in %s", a.cat.Source)}
	}
	a.cat.sortEntries()
	return a.cat, nil
}
