package librarian

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

const defaultBucket = "librarian"

type BoltOptions struct {
	// Bucket holding all keys; "librarian" by default.
	Bucket    string
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// KVStore implements Store over a single bucket of a transactional storage
// backend (Bolt or memory). Every Get, Put and Batch runs in its own
// transaction; a Scan holds a read transaction until its iterator is closed.
type KVStore struct {
	st     storage
	bucket string
	logger *slog.Logger

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

func OpenBolt(path string, opt BoltOptions) (*KVStore, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("librarian: %w", err)
	}
	s, err := newKVStore(newBoltStorage(bdb), opt.Bucket, opt.Logger)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return s, nil
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *KVStore {
	return must(newKVStore(newMemStorage(), "", nil))
}

func newKVStore(st storage, bucket string, logger *slog.Logger) (*KVStore, error) {
	if bucket == "" {
		bucket = defaultBucket
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &KVStore{st: st, bucket: bucket, logger: logger}
	err := s.update(func(storageBucket) error { return nil })
	if err != nil {
		return nil, storeErrf("open", nil, err)
	}
	return s, nil
}

func (s *KVStore) update(f func(b storageBucket) error) error {
	tx, err := s.st.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := tx.CreateBucket(s.bucket)
	if err != nil {
		return err
	}
	err = f(b)
	if err != nil {
		return err
	}
	s.WriteCount.Add(1)
	return tx.Commit()
}

func (s *KVStore) view(f func(b storageBucket) error) error {
	tx, err := s.st.BeginTx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	s.ReadCount.Add(1)
	return f(tx.Bucket(s.bucket))
}

func (s *KVStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.view(func(b storageBucket) error {
		v := b.Get(key)
		if v == nil {
			return ErrNotFound
		}
		value = slices.Clone(v)
		return nil
	})
	return value, err
}

func (s *KVStore) Put(key, value []byte) error {
	return s.update(func(b storageBucket) error {
		return b.Put(key, value)
	})
}

func (s *KVStore) Batch(ops []Op) error {
	return s.update(func(b storageBucket) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case OpPut:
				err = b.Put(op.Key, op.Value)
			case OpDelete:
				err = b.Delete(op.Key)
			default:
				err = fmt.Errorf("unknown op %v", op.Kind)
			}
			if err != nil {
				return fmt.Errorf("%v %s: %w", op.Kind, hexstr(op.Key), err)
			}
		}
		return nil
	})
}

// Scan opens its read transaction on the first call to Next.
func (s *KVStore) Scan(r KeyRange) (Iterator, error) {
	return &kvIterator{s: s, rang: r.raw()}, nil
}

func (s *KVStore) Peek(r KeyRange, last bool) (key, value []byte, ok bool, err error) {
	err = s.view(func(b storageBucket) error {
		rang := r.raw()
		rang.Reverse = last
		k, v := rang.start(b.Cursor(), s.logger)
		if k != nil {
			key, value, ok = slices.Clone(k), slices.Clone(v), true
		}
		return nil
	})
	return
}

// KeyCount returns the number of keys in the store, documents and index
// entries alike.
func (s *KVStore) KeyCount() (n int, err error) {
	err = s.view(func(b storageBucket) error {
		n = b.KeyCount()
		return nil
	})
	return
}

func (s *KVStore) Close() error {
	return s.st.Close()
}

type kvIterator struct {
	s      *KVStore
	rang   RawRange
	tx     storageTx
	cur    *RawRangeCursor
	closed bool
	err    error
}

func (it *kvIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	if it.tx == nil {
		it.tx, it.err = it.s.st.BeginTx(false)
		if it.err != nil {
			return false
		}
		it.s.ReadCount.Add(1)
		it.cur = it.rang.newCursor(it.tx.Bucket(it.s.bucket).Cursor(), it.s.logger)
	}
	return it.cur.Next()
}

func (it *kvIterator) Key() []byte   { return it.cur.Key() }
func (it *kvIterator) Value() []byte { return it.cur.Value() }
func (it *kvIterator) Err() error    { return it.err }

func (it *kvIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.tx == nil {
		return nil
	}
	return it.tx.Rollback()
}
