package librarian

// Store is an ordered key-value store. Implementations must be safe for
// concurrent use; every call is independent of the others.
type Store interface {
	// Get returns the value of key, or ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Put stores a single key-value pair.
	Put(key, value []byte) error

	// Batch applies all ops atomically: either all of them are persisted or
	// none is.
	Batch(ops []Op) error

	// Scan iterates over keys within r (both bounds inclusive), in descending
	// order if r.Reverse is set. Nothing is read until the first Next call.
	// The caller must Close the iterator.
	Scan(r KeyRange) (Iterator, error)

	// Peek returns the first (or, if last is set, the last) pair within r.
	// r.Reverse is ignored.
	Peek(r KeyRange, last bool) (key, value []byte, ok bool, err error)

	// Close releases the store.
	Close() error
}

// Iterator is a lazy sequence of key-value pairs returned by Store.Scan.
// Key and Value are only valid until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpDelete:
		return "del"
	default:
		return "unknown"
	}
}

// Op is one operation of a Store.Batch.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

func PutOp(key, value []byte) Op { return Op{Kind: OpPut, Key: key, Value: value} }
func DeleteOp(key []byte) Op     { return Op{Kind: OpDelete, Key: key} }
