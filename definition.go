package librarian

import (
	"fmt"
	"strings"
)

const (
	// KeyToken projects the document key instead of a field of its value.
	KeyToken = "..key"

	// LatestToken makes a latest-value index: the position is left empty and
	// the document key is not appended, so newer documents overwrite older
	// entries with the same indexed values.
	LatestToken = "$latest"

	definitionIDSep = ","
)

// Fields is an ordered list of field specifiers: either a single path
// (Single) or a composite list (Composite).
type Fields struct {
	paths     []string
	composite bool
}

func Single(path string) Fields {
	return Fields{paths: []string{path}}
}

func Composite(paths ...string) Fields {
	return Fields{paths: append([]string(nil), paths...), composite: true}
}

func (f Fields) Paths() []string   { return f.paths }
func (f Fields) Len() int          { return len(f.paths) }
func (f Fields) IsComposite() bool { return f.composite }

func (f Fields) String() string {
	return strings.Join(f.paths, definitionIDSep)
}

// ParseFields normalizes a loosely typed field specifier: a string, a list of
// strings ([]string or []any), a Fields or a Definition.
func ParseFields(spec any) (Fields, error) {
	switch v := spec.(type) {
	case Fields:
		return v, nil
	case Definition:
		return v.fields, nil
	case *Definition:
		if v == nil {
			return Fields{}, validationErrf("index definition", nil, "nil definition")
		}
		return v.fields, nil
	case string:
		return Single(v), nil
	case []string:
		return Composite(v...), nil
	case []any:
		paths := make([]string, len(v))
		for i, el := range v {
			s, ok := el.(string)
			if !ok {
				return Fields{}, validationErrf("index definition", nil, "element %d is %T, wanted string", i, el)
			}
			paths[i] = s
		}
		return Composite(paths...), nil
	default:
		return Fields{}, validationErrf("index definition", nil, "got %T, wanted a string or a list of strings", spec)
	}
}

// Definition is a validated index definition.
type Definition struct {
	fields Fields
	id     string
	latest bool
}

// Def builds a definition from one or more paths, panicking if it is invalid.
// Meant for package-level definitions.
func Def(paths ...string) Definition {
	var f Fields
	if len(paths) == 1 {
		f = Single(paths[0])
	} else {
		f = Composite(paths...)
	}
	return must(NewDefinition(f))
}

// NewDefinition validates spec (anything ParseFields accepts).
func NewDefinition(spec any) (Definition, error) {
	if d, ok := spec.(Definition); ok {
		if d.id == "" {
			return Definition{}, validationErrf("index definition", nil, "zero Definition")
		}
		return d, nil
	}
	f, err := ParseFields(spec)
	if err != nil {
		return Definition{}, err
	}
	if err := validateFields(f); err != nil {
		return Definition{}, err
	}
	var latest bool
	for _, p := range f.paths {
		if p == LatestToken {
			latest = true
		}
	}
	return Definition{fields: f, id: f.String(), latest: latest}, nil
}

func validateFields(f Fields) error {
	if len(f.paths) == 0 {
		return validationErrf("index definition", nil, "no fields")
	}
	for i, p := range f.paths {
		if p == "" {
			return validationErrf("index definition", nil, "field %d is empty", i)
		}
		if strings.Contains(p, definitionIDSep) {
			return validationErrf("index definition", nil, "field %q contains %q", p, definitionIDSep)
		}
		if strings.HasPrefix(p, ".") && p != KeyToken {
			return validationErrf("index definition", nil, "field %q starts with a dot", p)
		}
	}
	return nil
}

func (d Definition) ID() string      { return d.id }
func (d Definition) Fields() Fields  { return d.fields }
func (d Definition) Paths() []string { return d.fields.paths }
func (d Definition) IsLatest() bool  { return d.latest }
func (d Definition) String() string  { return d.id }

// project extracts the indexed values of doc, one per field. Missing fields
// and the latest token yield nil.
func (d Definition) project(doc Document) []any {
	values := make([]any, len(d.fields.paths))
	for i, p := range d.fields.paths {
		switch p {
		case KeyToken:
			values[i] = doc.Key
		case LatestToken:
			values[i] = nil
		default:
			if v, ok := Project(doc.Value, p); ok {
				values[i] = v
			}
		}
	}
	return values
}

// resolveDefinitions validates all raw specs; one bad spec fails all of them.
func resolveDefinitions(specs []any) ([]Definition, error) {
	defs := make([]Definition, 0, len(specs))
	for i, spec := range specs {
		d, err := NewDefinition(spec)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}
