package librarian

import (
	"fmt"
	"strconv"
	"strings"
)

type DumpFlags uint64

const (
	DumpStats = DumpFlags(1 << iota)
	DumpDocuments
	DumpIndexHeaders
	DumpIndexRows

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the key space of store: documents decoded with enc, then index
// entries grouped by definition, with their values unescaped.
func Dump(store Store, enc Encoding, f DumpFlags) (string, error) {
	var buf strings.Builder
	if f.Contains(DumpStats) {
		s, err := Stats(store)
		if err != nil {
			return "", err
		}
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "stats: documents = %d, index_entries = %d, data_size = %d, index_size = %d, total_size = %d\n", s.Documents, s.IndexEntries, s.DataSize, s.IndexSize, s.TotalSize())
	}

	it, err := store.Scan(KeyRange{})
	if err != nil {
		return "", storeErrf("scan", nil, err)
	}
	defer it.Close()

	var docPos, rowPos int
	var curDefID string
	var inIndexes bool
	for it.Next() {
		k, v := it.Key(), it.Value()
		if !IsIndexKey(k) {
			docPos++
			if f.Contains(DumpDocuments) {
				dumpDocument(&buf, enc, docPos, k, v)
			}
			continue
		}
		defID, segs, err := DecodeIndexKey(k)
		if err != nil {
			fmt.Fprintf(&buf, "?: %x ** ERROR: %v\n", k, err)
			continue
		}
		if !inIndexes || defID != curDefID {
			inIndexes, curDefID, rowPos = true, defID, 0
			if f.Contains(DumpIndexHeaders) {
				fmt.Fprintln(&buf, dumpSep2)
				fmt.Fprintf(&buf, "i.%s\n", defID)
			}
		}
		rowPos++
		if f.Contains(DumpIndexRows) {
			fmt.Fprintf(&buf, "i.%s.%d: %s => %s\n", defID, rowPos, segmentsString(segs), strconv.Quote(string(v)))
		}
	}
	if err := it.Err(); err != nil {
		return "", storeErrf("scan", nil, err)
	}
	return buf.String(), nil
}

func dumpDocument(w *strings.Builder, enc Encoding, pos int, k, v []byte) {
	val, err := enc.DecodeValue(v)
	if err != nil {
		fmt.Fprintf(w, "d.%d %s ** ERROR: %v\n", pos, strconv.Quote(string(k)), err)
		return
	}
	fmt.Fprintf(w, "d.%d %s = %s\n", pos, strconv.Quote(string(k)), loggableVal(val))
}

func segmentsString(segs [][]byte) string {
	var buf strings.Builder
	buf.WriteByte('(')
	for i, s := range segs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(strconv.Quote(string(s)))
	}
	buf.WriteByte(')')
	return buf.String()
}
