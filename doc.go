/*
Package librarian maintains secondary indexes for documents stored in an
ordered key-value store (Bolt, Pebble or an in-memory store), and answers
exact-match and range queries by scanning index keys and resolving them back
to the documents.

We implement:

1. Index definitions: a single dotted field path (“content.score”), or an
ordered list of paths for a composite index. Two special tokens are supported:
“..key” projects the document's own key, “$latest” turns the index into
a latest-value index (see below).

2. Writes: every document write is a single atomic store batch containing one
index entry per definition plus the document itself.

3. Reads: a declarative query is turned into a key range, the range is scanned,
and every index entry is resolved to its document. Results are pulled lazily
through a Cursor.

There is no transactional consistency between index entries and documents.
Entries are never deleted. Rewriting a document with a different indexed value
leaves the old entry in place. When reading, every entry is checked against the
document it points at: an entry whose document is gone, or whose document no
longer projects to the entry's key, is stale and silently skipped.

# Technical Details

**Key space.**
Documents live directly under their own key. Index entries live in the same key
space under a reserved marker (0xFF 'i' 0x00); document keys starting with 0xFF
are rejected.

**Index entry key.**

	0xFF 'i' 0x00  esc(definition ID) 0x00  (esc(value) 0x00)*  esc(document key) 0x00

The definition ID is the list of field specifiers joined by a comma. The value
of an index entry is the document key.

**Escaping.**
0x00 is the delimiter and 0xFF is used as the upper-bound sentinel, so neither
may appear inside a segment. Bytes are escaped with an order-preserving prefix
code: 00 → 01 01, 01 → 01 02, FE → FE 01, FF → FE 02.

**Values.**
Strings are stored as is. Numbers of every Go kind are converted to float64 and
stored as 16 hex digits of the sign-flipped IEEE 754 bits, so that byte order
matches numeric order. Times are stored as fixed-width UTC timestamps. Missing
fields occupy an empty segment.

**Latest indexes.**
A “$latest” definition does not append the document key, so writing another
document with the same indexed values overwrites the entry (put semantics of
the store). Reading such an index yields the latest document per value.

**Ranges.**
A range query [lo, hi] scans from marker+ID+lo+00 to marker+ID+hi+00+FF, both
inclusive. An open bound truncates that side's key after the preceding values.
*/
package librarian
