package librarian

import (
	"bytes"
	"context"
	"iter"
	"log/slog"
	"slices"
)

// Cursor yields the documents selected by a query, in index key order (or
// reverse order), skipping entries whose document is gone or no longer has
// the indexed values. It reads lazily: the store is not touched until the first
// call to Next, and at most Config.Concurrency entries are read ahead.
//
// A Cursor is not safe for concurrent use. Close releases the underlying
// store iterator; it is called automatically once the cursor is exhausted or
// fails, and may be called any number of times.
type Cursor struct {
	cfg    Config
	q      Query
	def    Definition
	rang   KeyRange
	logger *slog.Logger

	it      Iterator
	started bool
	done    bool
	err     error

	// limit caps the number of documents emitted; 0 means unlimited.
	limit   int
	emitted int
	// skipKey is an index entry already found stale by a peek.
	skipKey []byte

	pending []Document
	cur     Document
}

// Read validates cfg and q and returns a cursor over the matching documents.
// Validation and configuration errors are returned here, before any I/O;
// store errors are reported by Cursor.Err.
func Read(cfg Config, q Query) (*Cursor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	def, err := NewDefinition(q.K)
	if err != nil {
		return nil, err
	}
	if q.Peek < PeekNone || q.Peek > PeekLast {
		return nil, validationErrf("peek", nil, "unknown mode %v", q.Peek)
	}
	rang, err := BuildRange(q)
	if err != nil {
		return nil, err
	}
	return &Cursor{
		cfg:    cfg,
		q:      q,
		def:    def,
		rang:   rang,
		logger: cfg.logger(),
	}, nil
}

// ReadOne returns the first document selected by q, if any.
func ReadOne(cfg Config, q Query) (Document, bool, error) {
	c, err := Read(cfg, q)
	if err != nil {
		return Document{}, false, err
	}
	defer c.Close()
	if c.Next() {
		return c.Doc(), true, nil
	}
	return Document{}, false, c.Err()
}

// All drains c and closes it.
func All(c *Cursor) ([]Document, error) {
	var docs []Document
	for doc, err := range c.All() {
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// All returns an iterator over the remaining documents. The cursor is closed
// when the loop ends, including on break. A failure is yielded as the final
// pair.
func (c *Cursor) All() iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		defer c.Close()
		for c.Next() {
			if !yield(c.Doc(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(Document{}, err)
		}
	}
}

// Doc returns the document the last successful Next moved to.
func (c *Cursor) Doc() Document {
	return c.cur
}

// Err returns the error that ended the cursor, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Next advances to the next document. It returns false once the results are
// exhausted, after an error or after Close.
func (c *Cursor) Next() bool {
	if c.done && len(c.pending) == 0 {
		return false
	}
	if !c.started {
		c.start()
	}
	for len(c.pending) == 0 && !c.done {
		c.fill()
	}
	if len(c.pending) == 0 {
		return false
	}
	c.cur = c.pending[0]
	c.pending = c.pending[1:]
	c.emitted++
	c.cfg.Metrics.resolved()
	if c.limit > 0 && c.emitted >= c.limit {
		c.pending = nil
		c.finish(nil)
	}
	return true
}

func (c *Cursor) Close() error {
	c.pending = nil
	return c.release()
}

func (c *Cursor) release() error {
	c.done = true
	if c.it == nil {
		return nil
	}
	it := c.it
	c.it = nil
	return it.Close()
}

func (c *Cursor) finish(err error) {
	if err != nil && c.err == nil {
		c.err = c.cfg.Metrics.storeError(err)
	}
	if cerr := c.release(); cerr != nil && c.err == nil {
		c.err = c.cfg.Metrics.storeError(storeErrf("close", nil, cerr))
	}
}

func (c *Cursor) start() {
	c.started = true
	mode := "scan"
	if c.q.Peek != PeekNone {
		mode = "peek_" + c.q.Peek.String()
	}
	c.cfg.Metrics.read(c.def.ID(), mode)
	if c.cfg.Verbose {
		c.logger.LogAttrs(context.Background(), slog.LevelDebug, "READ", slog.String("index", c.def.ID()), slog.String("mode", mode), hexAttr("lower", c.rang.Lower), hexAttr("upper", c.rang.Upper), slog.Bool("reverse", c.rang.Reverse))
	}
	if c.q.Peek != PeekNone {
		c.peek()
	}
}

// peek resolves the single entry returned by Store.Peek: the first or last
// entry in scan order, so a reversed first peek reads the highest key. If that
// entry is stale, the cursor falls back to scanning in the same direction and
// stops after the first live document.
func (c *Cursor) peek() {
	last := (c.q.Peek == PeekLast) != c.rang.Reverse
	k, v, ok, err := c.cfg.Store.Peek(c.rang, last)
	if err != nil {
		c.finish(storeErrf("peek", c.rang.Lower, err))
		return
	}
	if !ok {
		c.finish(nil)
		return
	}
	c.cfg.Metrics.scanned()
	r, err := resolveOne(c.cfg.Store, c.cfg.Encoding, v)
	if err != nil {
		c.finish(err)
		return
	}
	if c.live(k, r) {
		c.pending = append(c.pending, r.doc)
		c.finish(nil)
		return
	}
	c.staleEntry(k, r.doc.Key)
	c.skipKey = slices.Clone(k)
	c.rang.Reverse = last
	c.limit = 1
}

// fill reads the next window of entries and resolves it. It leaves the cursor
// done when the range is exhausted.
func (c *Cursor) fill() {
	if c.it == nil {
		it, err := c.cfg.Store.Scan(c.rang)
		if err != nil {
			c.finish(storeErrf("scan", c.rang.Lower, err))
			return
		}
		c.it = it
	}

	n := c.cfg.concurrency()
	entryKeys := make([][]byte, 0, n)
	docKeys := make([][]byte, 0, n)
	for len(docKeys) < n && c.it.Next() {
		k := c.it.Key()
		if c.skipKey != nil && bytes.Equal(k, c.skipKey) {
			c.skipKey = nil
			continue
		}
		c.cfg.Metrics.scanned()
		entryKeys = append(entryKeys, slices.Clone(k))
		docKeys = append(docKeys, slices.Clone(c.it.Value()))
	}
	exhausted := len(docKeys) < n
	if exhausted {
		if err := c.it.Err(); err != nil {
			c.finish(storeErrf("scan", c.rang.Lower, err))
			return
		}
	}

	if len(docKeys) > 0 {
		results, err := resolveWindow(context.Background(), c.cfg.Store, c.cfg.Encoding, docKeys, n)
		if err != nil {
			c.finish(err)
			return
		}
		for i, r := range results {
			if !c.live(entryKeys[i], r) {
				c.staleEntry(entryKeys[i], r.doc.Key)
				continue
			}
			c.pending = append(c.pending, r.doc)
		}
	}
	if exhausted {
		c.finish(nil)
	}
}

// live reports whether the entry at entryKey still describes its document:
// the document exists and projects to the same index key.
func (c *Cursor) live(entryKey []byte, r resolved) bool {
	return !r.stale && entryMatches(c.def, r.doc, entryKey)
}

func (c *Cursor) staleEntry(entryKey []byte, docKey string) {
	c.cfg.Metrics.stale()
	if c.cfg.Verbose {
		c.logger.LogAttrs(context.Background(), slog.LevelDebug, "STALE", slog.String("index", c.def.ID()), hexAttr("entry", entryKey), slog.String("key", docKey))
	}
}
