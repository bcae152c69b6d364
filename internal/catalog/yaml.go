package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML loads a catalog from a YAML file with the same shape as the
// CUE form.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading catalog: %v", err), Err: err}
	}
	return ParseYAML(path, data)
}

// ParseYAML loads a catalog from YAML held in memory. Sections and entries
// are walked in document order so errors are reported deterministically.
func ParseYAML(name string, data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s: %v", name, err), Err: err}
	}
	a := newAssembler(name)
	if len(doc.Content) == 0 {
		return a.finish()
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: "catalog must be a mapping", File: name, Line: root.Line}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Value != "collection" {
			continue
		}
		if err := val.Decode(&a.defaultCollection); err != nil {
			return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: "collection must be a string", File: name, Line: val.Line, Err: err}
		}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Value == "collection" {
			continue
		}
		kind := Kind(key.Value)
		if kindRank(kind) == len(Kinds) {
			return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("unknown section %q", key.Value), File: name, Line: key.Line}
		}
		if val.Kind != yaml.MappingNode {
			return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("%s must be a mapping of named entries", kind), File: name, Line: val.Line}
		}
		for j := 0; j+1 < len(val.Content); j += 2 {
			nameNode, entryNode := val.Content[j], val.Content[j+1]
			loc := locator{file: name, line: nameNode.Line}
			if err := a.add(kind, nameNode.Value, loc, entryNode.Decode); err != nil {
				return nil, err
			}
		}
	}
	return a.finish()
}
