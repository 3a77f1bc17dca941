package librarian

import (
	"reflect"
	"strconv"
	"strings"
)

// Project returns the value found at the dotted path inside v, or false if any
// segment of the path is missing.
//
// Maps with string keys are indexed by key, structs by msgpack or json tag name
// (falling back to the field name), slices and arrays by a decimal index.
// Pointers and interfaces are followed.
func Project(v any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	cur := v
	for path != "" {
		var seg string
		seg, path, _ = splitByte(path, '.')
		next, ok := projectSegment(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func projectSegment(v any, seg string) (any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		r, ok := m[seg]
		return r, ok
	case map[string]string:
		r, ok := m[seg]
		return r, ok
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(m) {
			return nil, false
		}
		return m[i], true
	}

	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil, false
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		r := val.MapIndex(reflect.ValueOf(seg).Convert(val.Type().Key()))
		if !r.IsValid() {
			return nil, false
		}
		return r.Interface(), true
	case reflect.Struct:
		f, ok := structFieldByName(val, seg)
		if !ok {
			return nil, false
		}
		return f.Interface(), true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= val.Len() {
			return nil, false
		}
		return val.Index(i).Interface(), true
	default:
		return nil, false
	}
}

func structFieldByName(val reflect.Value, name string) (reflect.Value, bool) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tagName(sf, "msgpack") == name || tagName(sf, "json") == name {
			return val.Field(i), true
		}
	}
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if sf.IsExported() && sf.Name == name {
			return val.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tagName(sf reflect.StructField, key string) string {
	tag, ok := sf.Tag.Lookup(key)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
