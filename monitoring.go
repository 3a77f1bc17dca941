package librarian

import (
	"encoding/json"
	"fmt"
)

// StoreStats summarizes the key space of a store.
type StoreStats struct {
	Documents    int
	IndexEntries int
	// Indexes maps definition IDs to their entry counts.
	Indexes map[string]int

	DataSize  int
	IndexSize int
}

func (ss *StoreStats) TotalSize() int {
	return ss.DataSize + ss.IndexSize
}

// Stats scans the whole store and counts documents and index entries.
func Stats(store Store) (StoreStats, error) {
	result := StoreStats{Indexes: make(map[string]int)}
	it, err := store.Scan(KeyRange{})
	if err != nil {
		return result, storeErrf("scan", nil, err)
	}
	defer it.Close()
	for it.Next() {
		k, v := it.Key(), it.Value()
		if !IsIndexKey(k) {
			result.Documents++
			result.DataSize += len(k) + len(v)
			continue
		}
		defID, _, err := DecodeIndexKey(k)
		if err != nil {
			return result, err
		}
		result.IndexEntries++
		result.Indexes[defID]++
		result.IndexSize += len(k) + len(v)
	}
	return result, storeErrf("scan", nil, it.Err())
}

func loggableVal(v any) string {
	if v == nil {
		return "<none>"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%T>", v)
	}
	return string(raw)
}
