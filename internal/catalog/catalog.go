// Package catalog loads named query descriptors from CUE or YAML files.
//
// A catalog file has one optional default collection and five sections
// keyed by entry name:
//
//	collection: "books"
//	find: fiction: filter: [{field: "genre", value: "Fiction"}]
//	aggregate: top_author: pipeline: [...]
//	index: title: keys: [{field: "title"}]
//	update: hobbit_price: {filter: [...], set: [...]}
//	delete: animal_farm: filter: [...]
//
// Every entry is compiled through the same builders a Go caller would use,
// so a catalog never holds a descriptor the builders would reject.
package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/query"
)

// Kind names the catalog section an entry came from.
type Kind string

const (
	KindFind      Kind = "find"
	KindAggregate Kind = "aggregate"
	KindIndex     Kind = "index"
	KindUpdate    Kind = "update"
	KindDelete    Kind = "delete"
)

// Kinds lists the sections in the order entries are reported.
var Kinds = []Kind{KindFind, KindAggregate, KindIndex, KindUpdate, KindDelete}

func kindRank(k Kind) int {
	for i, known := range Kinds {
		if k == known {
			return i
		}
	}
	return len(Kinds)
}

// Entry is one named descriptor. Exactly one of Query, Pipeline, Index,
// Update or Filter is meaningful, selected by Kind.
type Entry struct {
	Name       string
	Kind       Kind
	Collection string

	// Explain marks find entries whose plan, not their documents, is wanted.
	Explain bool

	Query    query.Query
	Pipeline pipeline.Pipeline
	Index    index.Spec
	Update   query.Update
	Filter   query.Filter
}

// Fingerprint returns the fingerprint of the entry's descriptor.
// Delete entries hash as a find over the same filter.
func (e Entry) Fingerprint() (string, error) {
	switch e.Kind {
	case KindFind:
		return e.Query.Fingerprint()
	case KindAggregate:
		return e.Pipeline.Fingerprint()
	case KindIndex:
		return e.Index.Fingerprint()
	case KindUpdate:
		return e.Update.Fingerprint()
	case KindDelete:
		return query.Query{Filter: e.Filter}.Fingerprint()
	default:
		return "", fmt.Errorf("unknown entry kind %q", e.Kind)
	}
}

// Catalog is a loaded set of entries ordered by section, then name.
type Catalog struct {
	Source  string
	Entries []Entry
}

// Lookup returns the entry called name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns every entry name in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Name
	}
	return out
}

// OfKind returns the entries of one section.
func (c *Catalog) OfKind(k Kind) []Entry {
	var out []Entry
	for _, e := range c.Entries {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func (c *Catalog) sortEntries() {
	sort.SliceStable(c.Entries, func(i, j int) bool {
		ri, rj := kindRank(c.Entries[i].Kind), kindRank(c.Entries[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return c.Entries[i].Name < c.Entries[j].Name
	})
}

// Error codes reported in LoadError.Code.
const (
	ErrCodeGeneric           = "E001" // Generic/unknown error
	ErrCodeParseFailed       = "E004" // CUE or YAML syntax error
	ErrCodeNotFound          = "E005" // Path not found
	ErrCodeBuildFailed       = "E006" // CUE evaluation failed
	ErrCodeUnsupported       = "E008" // Unknown file extension
	ErrCodeDecodeFailed      = "E201" // Entry does not match the catalog schema
	ErrCodeInvalidEntry      = "E202" // Builder rejected the entry
	ErrCodeDuplicateEntry    = "E203" // Entry name used twice
	ErrCodeMissingCollection = "E204" // No collection on the entry or the file
	ErrCodeEmpty             = "E205" // No entries at all
)

// LoadError describes a failure to load one catalog or one of its entries.
// Pos is set for CUE sources; File and Line for YAML sources.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
	File    string
	Line    int
	Err     error
}

func (e *LoadError) Error() string {
	if loc := e.Location(); loc != "" {
		return fmt.Sprintf("%s: %s: %s", loc, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Location returns "file:line:col" for CUE sources, "file:line" for YAML
// sources and "" when the error has no position.
func (e *LoadError) Location() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	return ""
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a catalog, choosing the decoder by extension: ".cue" files
// and directories go through CUE, ".yaml" and ".yml" through YAML.
func Load(path string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".cue", "":
		return LoadCUE(path)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported catalog file %s: want .cue, .yaml or .yml", path)}
	}
}
