package catalog

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadCUE loads a catalog from a .cue file or from a directory holding one
// CUE package.
func LoadCUE(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog: %v", err), Err: err}
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading catalog: %v", err), Err: err}
		}
		return fromCUE(path, ctx.CompileBytes(data, cue.Filename(path)))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err), Err: inst.Err}
	}
	return fromCUE(path, ctx.BuildInstance(inst))
}

// ParseCUE loads a catalog from CUE source held in memory. name is used in
// error positions.
func ParseCUE(name string, src []byte) (*Catalog, error) {
	return fromCUE(name, cuecontext.New().CompileBytes(src, cue.Filename(name)))
}

func fromCUE(source string, v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error(), Pos: firstPos(err), Err: err}
	}

	a := newAssembler(source)
	if c := v.LookupPath(cue.ParsePath("collection")); c.Exists() {
		name, err := c.String()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: "collection must be a string", Pos: c.Pos(), Err: err}
		}
		a.defaultCollection = name
	}

	for _, kind := range Kinds {
		section := v.LookupPath(cue.ParsePath(string(kind)))
		if !section.Exists() {
			continue
		}
		iter, err := section.Fields()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("%s must be a struct of named entries", kind), Pos: section.Pos(), Err: err}
		}
		for iter.Next() {
			entry := iter.Value()
			if err := a.add(kind, iter.Label(), locator{pos: entry.Pos()}, entry.Decode); err != nil {
				return nil, err
			}
		}
	}
	return a.finish()
}

// firstPos returns the position of the first CUE error, if it has one.
func firstPos(err error) token.Pos {
	for _, e := range errors.Errors(err) {
		if positions := errors.Positions(e); len(positions) > 0 {
			return positions[0]
		}
	}
	return token.NoPos
}
