package librarian

import (
	"fmt"
	"strings"
)

type Peek int

const (
	PeekNone Peek = iota
	PeekFirst
	PeekLast
)

func (p Peek) String() string {
	switch p {
	case PeekNone:
		return ""
	case PeekFirst:
		return "first"
	case PeekLast:
		return "last"
	default:
		return fmt.Sprintf("Peek(%d)", int(p))
	}
}

func ParsePeek(s string) (Peek, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return PeekNone, nil
	case "first":
		return PeekFirst, nil
	case "last":
		return PeekLast, nil
	default:
		return PeekNone, validationErrf("peek", nil, "%q is not one of first, last", s)
	}
}

// Bound is one side of a Value. An open bound leaves that side unrestricted.
type Bound struct {
	Value any
	Open  bool
}

// Value is the condition on one indexed position: an exact match (Eq) or an
// inclusive range (Between, AtLeast, AtMost).
type Value struct {
	Lo, Hi Bound
	exact  bool
}

// Eq matches the given value exactly. Eq(nil) matches missing fields.
func Eq(v any) Value {
	return Value{Lo: Bound{Value: v}, Hi: Bound{Value: v}, exact: true}
}

// Between matches lo <= x <= hi; a nil bound is open.
func Between(lo, hi any) Value {
	return Value{Lo: Bound{Value: lo, Open: lo == nil}, Hi: Bound{Value: hi, Open: hi == nil}}
}

func AtLeast(lo any) Value { return Between(lo, nil) }
func AtMost(hi any) Value  { return Between(nil, hi) }

func (v Value) IsExact() bool {
	return v.exact
}

func (v Value) String() string {
	if v.IsExact() {
		return fmt.Sprint(v.Lo.Value)
	}
	side := func(b Bound) string {
		if b.Open {
			return "*"
		}
		return fmt.Sprint(b.Value)
	}
	return "[" + side(v.Lo) + ", " + side(v.Hi) + "]"
}

// Query selects documents through the index named by K.
type Query struct {
	K       Fields
	V       []Value
	Reverse bool
	Peek    Peek
}

func (q Query) String() string {
	var buf strings.Builder
	buf.WriteString(q.K.String())
	buf.WriteString(" = ")
	for i, v := range q.V {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(v.String())
	}
	if q.Reverse {
		buf.WriteString(" reverse")
	}
	if q.Peek != PeekNone {
		buf.WriteString(" peek ")
		buf.WriteString(q.Peek.String())
	}
	return buf.String()
}

// ParseQuery builds a Query from loosely typed k and v (for example, decoded
// JSON), normalizing them with ParseFields and ParseValues. For a single
// field, a flat list of one or two values is the range [lo, hi] (hi = lo if
// omitted), so v = [4, 5] means 4 <= x <= 5.
func ParseQuery(k, v any) (Query, error) {
	f, err := ParseFields(k)
	if err != nil {
		return Query{}, err
	}
	if list, ok := v.([]any); ok && f.Len() == 1 && isFlatRange(list) {
		r, err := parseValue(list)
		if err != nil {
			return Query{}, validationErrf("query value", err, "%v", list)
		}
		return Query{K: f, V: []Value{r}}, nil
	}
	vals, err := ParseValues(v)
	if err != nil {
		return Query{}, err
	}
	return Query{K: f, V: vals}, nil
}

// ParseValues normalizes a loosely typed value specifier. A scalar means a
// single exact match. A list holds one specifier per position; an element
// that is itself a list is a range [lo, hi], where [lo] means hi = lo and
// nil means an open side. nil yields no conditions.
func ParseValues(spec any) ([]Value, error) {
	switch s := spec.(type) {
	case nil:
		return nil, nil
	case []Value:
		return s, nil
	case Value:
		return []Value{s}, nil
	case []any:
		vals := make([]Value, len(s))
		for i, el := range s {
			v, err := parseValue(el)
			if err != nil {
				return nil, validationErrf("query value", err, "position %d", i)
			}
			vals[i] = v
		}
		return vals, nil
	default:
		return []Value{Eq(spec)}, nil
	}
}

func isFlatRange(list []any) bool {
	if len(list) != 1 && len(list) != 2 {
		return false
	}
	for _, el := range list {
		switch el.(type) {
		case []any, Value:
			return false
		}
	}
	return true
}

func parseValue(el any) (Value, error) {
	switch e := el.(type) {
	case Value:
		return e, nil
	case []any:
		switch len(e) {
		case 1:
			return Eq(e[0]), nil
		case 2:
			return Between(e[0], e[1]), nil
		default:
			return Value{}, fmt.Errorf("range must have 1 or 2 elements, got %d", len(e))
		}
	default:
		return Eq(el), nil
	}
}
