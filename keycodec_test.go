package librarian

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"testing"
	"time"
)

func TestEncodeIndexKey(t *testing.T) {
	o := func(name string, def Definition, values []any, pk string, exp []byte) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			key, err := EncodeIndexKey(def, values, pk)
			if err != nil {
				t.Fatalf("EncodeIndexKey failed: %v", err)
			}
			if !bytes.Equal(key, exp) {
				t.Errorf("** got %x, wanted %x", key, exp)
			}
		})
	}
	cat := func(parts ...string) []byte {
		return []byte(string(indexMarker) + string(bytes.Join(toBytes(parts), nil)))
	}

	o("single", Def("name"), []any{"ann"}, "k1", cat("name\x00", "ann\x00", "k1\x00"))
	o("composite", Def("a", "b"), []any{"x", "y"}, "k", cat("a,b\x00", "x\x00", "y\x00", "k\x00"))
	o("absent", Def("a"), []any{nil}, "k", cat("a\x00", "\x00", "k\x00"))
	o("latest", Def("room", LatestToken), []any{"r", nil}, "k", cat("room,$latest\x00", "r\x00", "\x00"))
	o("escaped", Def("a"), []any{"\x00\x01\xfe\xff"}, "\xff", cat("a\x00", "\x01\x01\x01\x02\xfe\x01\xfe\x02\x00", "\xfe\x02\x00"))
	o("bool", Def("a"), []any{true}, "k", cat("a\x00", "true\x00", "k\x00"))
}

func toBytes(parts []string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestEncodeIndexKey_Deterministic(t *testing.T) {
	def := Def("a", "b.c")
	doc := Document{Key: "k", Value: map[string]any{"a": 1.5, "b": map[string]any{"c": []any{"x", 2}}}}
	k1 := must(EncodeIndexKey(def, def.project(doc), doc.Key))
	k2 := must(EncodeIndexKey(def, def.project(doc), doc.Key))
	deepEqual(t, k1, k2)
}

func TestEncodeIndexKey_WrongArity(t *testing.T) {
	_, err := EncodeIndexKey(Def("a", "b"), []any{1}, "k")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, wanted *ValidationError", err)
	}
}

func TestEncodeValue_NumbersSortNumerically(t *testing.T) {
	nums := []any{math.Inf(-1), -1e300, int64(-1 << 40), -100, -2.5, -1, -0.001, 0, 1e-300, 0.5, 1, uint8(2), 10, 100, 1e10, 1 << 53, math.MaxFloat64, math.Inf(1)}
	var keys [][]byte
	for _, n := range nums {
		keys = append(keys, must(EncodeValue(n)))
	}
	for i := 1; i < len(keys); i++ {
		if bytes.Compare(keys[i-1], keys[i]) >= 0 {
			t.Errorf("** %v (%s) does not sort before %v (%s)", nums[i-1], keys[i-1], nums[i], keys[i])
		}
	}
}

func TestEncodeValue_NumberKindsAgree(t *testing.T) {
	exp := must(EncodeValue(4))
	for _, v := range []any{int8(4), int32(4), int64(4), uint(4), uint64(4), float32(4), 4.0} {
		deepEqual(t, must(EncodeValue(v)), exp)
	}
	deepEqual(t, must(EncodeValue(math.Copysign(0, -1))), must(EncodeValue(0)))
	deepEqual(t, len(exp), 16)
}

func TestEncodeValue_NaN(t *testing.T) {
	if _, err := EncodeValue(math.NaN()); err == nil {
		t.Fatalf("EncodeValue(NaN) succeeded")
	}
}

func TestEncodeValue_Kinds(t *testing.T) {
	type name string
	o := func(v any, exp string) {
		t.Helper()
		deepEqual(t, string(must(EncodeValue(v))), exp)
	}
	o(nil, "")
	o("", "")
	o("abc", "abc")
	o([]byte("abc"), "abc")
	o(name("abc"), "abc")
	o(false, "false")
	o(time.Date(2024, 5, 6, 7, 8, 9, 10, time.FixedZone("X", 3600)), "2024-05-06T06:08:09.000000010Z")
	o(map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`)
	o([]any{"x", true}, `["x",true]`)
	o(stringerValue{}, "stringer")
}

type stringerValue struct{}

func (stringerValue) String() string { return "stringer" }

func TestEncodeValue_TimesSortChronologically(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Nanosecond), base.Add(time.Second), base.Add(time.Hour).In(time.FixedZone("Y", -5*3600))}
	for i := 1; i < len(times); i++ {
		a, b := must(EncodeValue(times[i-1])), must(EncodeValue(times[i]))
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("** %v does not sort before %v", times[i-1], times[i])
		}
	}
}

func TestEscapingPreservesOrder(t *testing.T) {
	strs := []string{"", "\x00", "\x00\x00", "\x00\x01", "\x01", "\x01\xff", "\x02", "a", "a\x00", "a\x00b", "ab", "\xfd", "\xfe", "\xfe\x00", "\xff", "\xff\x00", "\xff\xff"}
	if !slices.IsSorted(strs) {
		t.Fatalf("test input is not sorted")
	}
	var segs [][]byte
	for _, s := range strs {
		esc := appendEscaped(nil, []byte(s))
		if bytes.IndexByte(esc, keyDelim) >= 0 || bytes.IndexByte(esc, keySentinel) >= 0 {
			t.Errorf("** escaped %q = %x contains a reserved byte", s, esc)
		}
		segs = append(segs, append(esc, keyDelim))
	}
	for i := 1; i < len(segs); i++ {
		if bytes.Compare(segs[i-1], segs[i]) >= 0 {
			t.Errorf("** %q sorts after %q once escaped", strs[i-1], strs[i])
		}
	}
}

func TestUnescape(t *testing.T) {
	for _, s := range []string{"", "abc", "\x00\x01\x02\xfd\xfe\xff", "\xff\xff\x00\x00"} {
		deepEqual(t, string(must(unescape(appendEscaped(nil, []byte(s))))), s)
	}
	if _, err := unescape([]byte{escLow}); err == nil {
		t.Errorf("** truncated escape accepted")
	}
	if _, err := unescape([]byte{escHigh, 0x07}); err == nil {
		t.Errorf("** invalid escape accepted")
	}
}

func TestDecodeIndexKey(t *testing.T) {
	def := Def("a.b", "c")
	key := must(EncodeIndexKey(def, []any{"x\x00y", nil}, "doc\xff"))

	if !IsIndexKey(key) {
		t.Fatalf("IsIndexKey = false")
	}
	id, segs, err := DecodeIndexKey(key)
	if err != nil {
		t.Fatalf("DecodeIndexKey failed: %v", err)
	}
	deepEqual(t, id, "a.b,c")
	deepEqual(t, segs, [][]byte{[]byte("x\x00y"), {}, []byte("doc\xff")})

	if _, _, err := DecodeIndexKey([]byte("plain")); err == nil {
		t.Errorf("** document key decoded as index key")
	}
	if _, _, err := DecodeIndexKey(key[:len(key)-1]); err == nil {
		t.Errorf("** unterminated key decoded")
	}
}
