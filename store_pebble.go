package librarian

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

type PebbleOptions struct {
	// FS overrides the filesystem; vfs.NewMem() gives a transient store.
	FS vfs.FS
	// Sync makes every write wait for the WAL to reach disk.
	Sync bool
}

// PebbleStore implements Store over a Pebble LSM database.
type PebbleStore struct {
	db *pebble.DB
	wo *pebble.WriteOptions
}

func OpenPebble(dir string, opt PebbleOptions) (*PebbleStore, error) {
	popt := &pebble.Options{
		ErrorIfExists: false,
		FS:            opt.FS,
	}
	db, err := pebble.Open(dir, popt)
	if err != nil {
		return nil, fmt.Errorf("librarian: %w", err)
	}
	wo := pebble.NoSync
	if opt.Sync {
		wo = pebble.Sync
	}
	return &PebbleStore{db: db, wo: wo}, nil
}

// DB exposes the underlying database.
func (s *PebbleStore) DB() *pebble.DB {
	return s.db
}

func (s *PebbleStore) Get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()
	return slices.Clone(v), nil
}

func (s *PebbleStore) Put(key, value []byte) error {
	return s.db.Set(key, value, s.wo)
}

func (s *PebbleStore) Batch(ops []Op) error {
	b := s.db.NewBatch()
	defer b.Close()
	for _, op := range ops {
		var err error
		switch op.Kind {
		case OpPut:
			err = b.Set(op.Key, op.Value, nil)
		case OpDelete:
			err = b.Delete(op.Key, nil)
		default:
			err = fmt.Errorf("unknown op %v", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("%v %s: %w", op.Kind, hexstr(op.Key), err)
		}
	}
	return b.Commit(s.wo)
}

func (s *PebbleStore) iterOptions(r KeyRange) *pebble.IterOptions {
	o := &pebble.IterOptions{LowerBound: r.Lower}
	// Pebble's upper bound is exclusive.
	if r.Upper != nil {
		o.UpperBound = successor(r.Upper)
	}
	return o
}

func (s *PebbleStore) Scan(r KeyRange) (Iterator, error) {
	return &pebbleIterator{s: s, opts: s.iterOptions(r), reverse: r.Reverse}, nil
}

func emptyBounds(o *pebble.IterOptions) bool {
	return o.UpperBound != nil && bytes.Compare(o.LowerBound, o.UpperBound) >= 0
}

func (s *PebbleStore) Peek(r KeyRange, last bool) (key, value []byte, ok bool, err error) {
	opts := s.iterOptions(r)
	if emptyBounds(opts) {
		return nil, nil, false, nil
	}
	it, err := s.db.NewIter(opts)
	if err != nil {
		return nil, nil, false, err
	}
	defer it.Close()
	if last {
		ok = it.Last()
	} else {
		ok = it.First()
	}
	if ok {
		key, value = slices.Clone(it.Key()), slices.Clone(it.Value())
	}
	return key, value, ok, it.Error()
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// pebbleIterator opens the underlying iterator on the first Next.
type pebbleIterator struct {
	s       *PebbleStore
	opts    *pebble.IterOptions
	reverse bool
	it      *pebble.Iterator
	started bool
	closed  bool
	err     error
}

func (pi *pebbleIterator) Next() bool {
	if pi.closed || pi.err != nil {
		return false
	}
	if !pi.started {
		pi.started = true
		if emptyBounds(pi.opts) {
			return false
		}
		pi.it, pi.err = pi.s.db.NewIter(pi.opts)
		if pi.err != nil {
			return false
		}
		if pi.reverse {
			return pi.valid(pi.it.Last())
		}
		return pi.valid(pi.it.First())
	}
	if pi.it == nil {
		return false
	}
	if pi.reverse {
		return pi.valid(pi.it.Prev())
	}
	return pi.valid(pi.it.Next())
}

func (pi *pebbleIterator) valid(ok bool) bool {
	if !ok {
		pi.err = pi.it.Error()
	}
	return ok
}

func (pi *pebbleIterator) Key() []byte   { return pi.it.Key() }
func (pi *pebbleIterator) Value() []byte { return pi.it.Value() }
func (pi *pebbleIterator) Err() error    { return pi.err }

func (pi *pebbleIterator) Close() error {
	if pi.closed {
		return nil
	}
	pi.closed = true
	if pi.it == nil {
		return nil
	}
	return pi.it.Close()
}
