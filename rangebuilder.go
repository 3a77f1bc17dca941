package librarian

import "bytes"

// KeyRange is an inclusive range of store keys. Reverse only changes the
// order in which a scan emits keys.
type KeyRange struct {
	Lower   []byte
	Upper   []byte
	Reverse bool
}

// Contains reports whether Lower <= key <= Upper.
func (r KeyRange) Contains(key []byte) bool {
	return bytes.Compare(key, r.Lower) >= 0 && bytes.Compare(key, r.Upper) <= 0
}

func (r KeyRange) raw() RawRange {
	rang := rawII(r.Lower, r.Upper)
	rang.Reverse = r.Reverse
	return rang
}

// BuildRange turns q into the range of index entry keys it selects. It does
// no I/O.
//
// Each bound is the index prefix followed by the encoded bound values; an open
// bound ends that side's key at its position, leaving the remaining positions
// unrestricted. The upper bound is followed by 0xFF, which is greater than any
// byte of an encoded segment, so every continuation (more values, the document
// key) stays inside the range.
func BuildRange(q Query) (KeyRange, error) {
	def, err := NewDefinition(q.K)
	if err != nil {
		return KeyRange{}, err
	}
	paths := def.Paths()
	if len(q.V) > len(paths) {
		return KeyRange{}, validationErrf("query", nil, "%d values for %d fields of %s", len(q.V), len(paths), def.ID())
	}
	for i := range q.V {
		if paths[i] == LatestToken {
			return KeyRange{}, validationErrf("query", nil, "value given for %s position %d of %s", LatestToken, i, def.ID())
		}
	}

	prefix := appendIndexPrefix(make([]byte, 0, 64), def.ID())

	lower := append([]byte(nil), prefix...)
	for i, v := range q.V {
		if v.Lo.Open {
			break
		}
		lower, err = appendSegment(lower, v.Lo.Value)
		if err != nil {
			return KeyRange{}, validationErrf("query value", err, "lower bound at position %d", i)
		}
	}

	upper := append([]byte(nil), prefix...)
	for i, v := range q.V {
		if v.Hi.Open {
			break
		}
		upper, err = appendSegment(upper, v.Hi.Value)
		if err != nil {
			return KeyRange{}, validationErrf("query value", err, "upper bound at position %d", i)
		}
	}
	upper = append(upper, keySentinel)

	return KeyRange{Lower: lower, Upper: upper, Reverse: q.Reverse}, nil
}
