package librarian

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
)

const (
	keyDelim    byte = 0x00
	keySentinel byte = 0xFF

	escLow  byte = 0x01 // escapes 0x00 and 0x01
	escHigh byte = 0xFE // escapes 0xFE and 0xFF

	timeKeyLayout = "2006-01-02T15:04:05.000000000Z"
)

// indexMarker starts every index entry key. Document keys must not start with
// 0xFF, so the two key spaces never overlap.
var indexMarker = []byte{keySentinel, 'i', keyDelim}

var timeType = reflect.TypeOf(time.Time{})

// IsIndexKey reports whether key belongs to the index entry key space.
func IsIndexKey(key []byte) bool {
	return bytes.HasPrefix(key, indexMarker)
}

// EncodeIndexKey builds the key of the index entry for the given projected
// values. pk is appended unless def is a latest index.
func EncodeIndexKey(def Definition, values []any, pk string) ([]byte, error) {
	if len(values) != len(def.fields.paths) {
		return nil, validationErrf("index values", nil, "%s: got %d values, wanted %d", def.id, len(values), len(def.fields.paths))
	}
	buf := appendIndexPrefix(make([]byte, 0, 64), def.id)
	var err error
	for i, v := range values {
		buf, err = appendSegment(buf, v)
		if err != nil {
			return nil, validationErrf("index value", err, "%s[%d]", def.id, i)
		}
	}
	if !def.latest {
		buf = appendEscaped(buf, []byte(pk))
		buf = append(buf, keyDelim)
	}
	return buf, nil
}

// entryMatches reports whether doc, as read back from the store, still
// projects to entryKey under def. A document rewritten with different indexed
// values no longer matches the entries written for its earlier versions.
func entryMatches(def Definition, doc Document, entryKey []byte) bool {
	values := def.project(doc)
	key, err := EncodeIndexKey(def, values, doc.Key)
	if err == nil && bytes.Equal(key, entryKey) {
		return true
	}

	// JSON brings times back as RFC 3339 strings.
	var retry bool
	for i, v := range values {
		if s, ok := v.(string); ok {
			if tm, err := time.Parse(time.RFC3339Nano, s); err == nil {
				values[i] = tm
				retry = true
			}
		}
	}
	if !retry {
		return false
	}
	key, err = EncodeIndexKey(def, values, doc.Key)
	return err == nil && bytes.Equal(key, entryKey)
}

// EncodeValue returns the escaped key segment for v, without the delimiter.
func EncodeValue(v any) ([]byte, error) {
	raw, err := stringify(nil, v)
	if err != nil {
		return nil, validationErrf("index value", err, "%T", v)
	}
	return appendEscaped(nil, raw), nil
}

func appendIndexPrefix(buf []byte, defID string) []byte {
	buf = append(buf, indexMarker...)
	buf = appendEscaped(buf, []byte(defID))
	return append(buf, keyDelim)
}

func appendSegment(buf []byte, v any) ([]byte, error) {
	raw, err := stringify(acquireSegmentBytes(), v)
	if err != nil {
		return nil, err
	}
	buf = appendEscaped(buf, raw)
	releaseSegmentBytes(raw)
	return append(buf, keyDelim), nil
}

// appendEscaped appends raw using an order-preserving prefix code that keeps
// keyDelim and keySentinel out of the output.
func appendEscaped(buf []byte, raw []byte) []byte {
	for _, b := range raw {
		switch b {
		case 0x00:
			buf = append(buf, escLow, 0x01)
		case 0x01:
			buf = append(buf, escLow, 0x02)
		case 0xFE:
			buf = append(buf, escHigh, 0x01)
		case 0xFF:
			buf = append(buf, escHigh, 0x02)
		default:
			buf = append(buf, b)
		}
	}
	return buf
}

func unescape(seg []byte) ([]byte, error) {
	out := make([]byte, 0, len(seg))
	for i := 0; i < len(seg); i++ {
		b := seg[i]
		if b != escLow && b != escHigh {
			out = append(out, b)
			continue
		}
		if i+1 >= len(seg) {
			return nil, dataErrf(seg, i, nil, "truncated escape sequence")
		}
		i++
		switch seg[i] {
		case 0x01:
			if b == escLow {
				out = append(out, 0x00)
			} else {
				out = append(out, 0xFE)
			}
		case 0x02:
			if b == escLow {
				out = append(out, 0x01)
			} else {
				out = append(out, 0xFF)
			}
		default:
			return nil, dataErrf(seg, i, nil, "invalid escape sequence %02x %02x", b, seg[i])
		}
	}
	return out, nil
}

// DecodeIndexKey splits an index entry key into the definition ID and the
// unescaped segments that follow it (indexed values, then the document key
// unless the index is a latest one).
func DecodeIndexKey(key []byte) (string, [][]byte, error) {
	if !IsIndexKey(key) {
		return "", nil, dataErrf(key, 0, nil, "not an index key")
	}
	rest := key[len(indexMarker):]
	if len(rest) == 0 || rest[len(rest)-1] != keyDelim {
		return "", nil, dataErrf(key, len(key), nil, "index key is not terminated")
	}
	parts := bytes.Split(rest[:len(rest)-1], []byte{keyDelim})
	id, err := unescape(parts[0])
	if err != nil {
		return "", nil, err
	}
	segs := make([][]byte, 0, len(parts)-1)
	for _, p := range parts[1:] {
		s, err := unescape(p)
		if err != nil {
			return "", nil, err
		}
		segs = append(segs, s)
	}
	return string(id), segs, nil
}

// stringify appends the unescaped, order-preserving representation of v.
func stringify(buf []byte, v any) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return buf, nil
	case string:
		return append(buf, v...), nil
	case []byte:
		return append(buf, v...), nil
	case bool:
		if v {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case float64:
		return appendNumber(buf, v)
	case int:
		return appendNumber(buf, float64(v))
	case int64:
		return appendNumber(buf, float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return appendNumber(buf, f)
	case time.Time:
		return append(buf, v.UTC().Format(timeKeyLayout)...), nil
	}

	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return buf, nil
		}
		val = val.Elem()
	}
	if val.Type() == timeType {
		return stringify(buf, val.Interface())
	}
	switch val.Kind() {
	case reflect.String:
		return append(buf, val.String()...), nil
	case reflect.Bool:
		return stringify(buf, val.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return appendNumber(buf, float64(val.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return appendNumber(buf, float64(val.Uint()))
	case reflect.Float32, reflect.Float64:
		return appendNumber(buf, val.Float())
	case reflect.Slice:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return append(buf, val.Bytes()...), nil
		}
	}
	if s, ok := v.(fmt.Stringer); ok {
		return append(buf, s.String()...), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cannot stringify %T: %w", v, err)
	}
	return append(buf, raw...), nil
}

// appendNumber writes f as 16 hex digits of its IEEE 754 bits with the sign
// bit flipped for positives and all bits flipped for negatives, which makes
// byte order match numeric order.
func appendNumber(buf []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) {
		return nil, fmt.Errorf("NaN cannot be indexed")
	}
	if f == 0 {
		f = 0 // -0 → +0
	}
	bits := math.Float64bits(f)
	if bits&(1<<63) == 0 {
		bits |= 1 << 63
	} else {
		bits = ^bits
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], bits)
	return hex.AppendEncode(buf, b[:]), nil
}
