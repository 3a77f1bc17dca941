package librarian

import (
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestScoreScenario(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		cfg := Config{Store: store, Indexes: []any{"score"}}
		ensure(WriteOne(cfg, Document{Key: "a", Value: map[string]any{"score": 4}}))
		ensure(WriteOne(cfg, Document{Key: "b", Value: map[string]any{"score": 5}}))

		docs := readAll(t, cfg, query(t, "score", 4))
		deepEqual(t, docs, []Document{{Key: "a", Value: map[string]any{"score": int64(4)}}})

		deepEqual(t, readKeys(t, cfg, query(t, "score", []any{4, 5})), []string{"a", "b"})

		q := query(t, "score", []any{4, 5})
		q.Reverse = true
		deepEqual(t, readKeys(t, cfg, q), []string{"b", "a"})
	})
}

func TestCompositeScenario(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		cfg := Config{Store: store, Indexes: []any{[]string{"score", "timestamp"}}}
		ensure(WriteOne(cfg, Document{Key: "c", Value: map[string]any{"score": 4, "timestamp": 100}}))

		k := []any{"score", "timestamp"}
		deepEqual(t, readKeys(t, cfg, query(t, k, []any{4, []any{50, 150}})), []string{"c"})
		isempty(t, readKeys(t, cfg, query(t, k, []any{4, []any{200, 300}})))
	})
}

// Queries over a small collection of people, covering every shape of value a
// query can take.
func TestPeopleQueries(t *testing.T) {
	people := []Document{
		{Key: "ann", Value: map[string]any{"name": "Ann", "age": 31, "city": "Oslo", "tags": []any{"admin"}}},
		{Key: "bob", Value: map[string]any{"name": "Bob", "age": 25, "city": "Rome"}},
		{Key: "cid", Value: map[string]any{"name": "Cid", "age": -3.5, "city": "Oslo"}},
		{Key: "dan", Value: map[string]any{"name": "Dan", "age": 40}},
		{Key: "eve", Value: map[string]any{"name": "Eve", "age": 25, "city": "Oslo"}},
	}
	eachStore(t, func(t *testing.T, store Store) {
		cfg := Config{
			Store:   store,
			Indexes: []any{"age", "city", []string{"city", "age"}, "tags.0", []string{KeyToken}},
		}
		ensure(Write(cfg, slices.Values(people)))

		o := func(name string, k, v any, reverse bool, exp ...string) {
			t.Helper()
			t.Run(name, func(t *testing.T) {
				q := query(t, k, v)
				q.Reverse = reverse
				got := readKeys(t, cfg, q)
				if exp == nil {
					exp = []string{}
				}
				if got == nil {
					got = []string{}
				}
				deepEqual(t, got, exp)
			})
		}

		o("A all by age", "age", nil, false, "cid", "bob", "eve", "ann", "dan")
		o("B all by age reverse", "age", nil, true, "dan", "ann", "eve", "bob", "cid")
		o("C exact number", "age", 25, false, "bob", "eve")
		o("D number range", "age", []any{[]any{0, 35}}, false, "bob", "eve", "ann")
		o("E open lower", "age", []any{[]any{nil, 25}}, false, "cid", "bob", "eve")
		o("F open upper", "age", []any{[]any{30, nil}}, false, "ann", "dan")
		o("G missing field", "city", []any{nil}, false, "dan")
		o("composite prefix", []any{"city", "age"}, "Oslo", false, "cid", "eve", "ann")
		o("composite exact then range", []any{"city", "age"}, []any{"Oslo", []any{0, 100}}, false, "eve", "ann")
		o("composite exact then range reverse", []any{"city", "age"}, []any{"Oslo", []any{0, 100}}, true, "ann", "eve")
		o("array element", "tags.0", "admin", false, "ann")
		o("document key", KeyToken, []any{[]any{"b", "d"}}, false, "bob", "cid")
		o("no match", "age", 99, false)
	})
}

func TestLatestIndexOverwrites(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		cfg := Config{Store: store, Indexes: []any{[]string{"room", LatestToken}}}
		ensure(WriteOne(cfg, Document{Key: "m1", Value: map[string]any{"room": "r1"}}))
		ensure(WriteOne(cfg, Document{Key: "m2", Value: map[string]any{"room": "r1"}}))
		ensure(WriteOne(cfg, Document{Key: "m3", Value: map[string]any{"room": "r2"}}))

		k := []string{"room", LatestToken}
		deepEqual(t, readKeys(t, cfg, query(t, k, "r1")), []string{"m2"})
		deepEqual(t, readKeys(t, cfg, query(t, k, nil)), []string{"m2", "m3"})
	})
}

func TestReindexSkipsOldEntries(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		m := NewMetrics("test")
		cfg := Config{Store: store, Indexes: []any{"score"}, Metrics: m, Logger: testLogger(t), Verbose: true}
		ensure(WriteOne(cfg, Document{Key: "a", Value: map[string]any{"score": 4}}))
		ensure(WriteOne(cfg, Document{Key: "a", Value: map[string]any{"score": 9}}))

		// The entry for score 4 is still stored but points at a document
		// that now has score 9.
		deepEqual(t, must(Stats(store)).IndexEntries, 2)
		isempty(t, readAll(t, cfg, query(t, "score", 4)))
		deepEqual(t, readAll(t, cfg, query(t, "score", 9)), []Document{{Key: "a", Value: map[string]any{"score": int64(9)}}})
		deepEqual(t, readKeys(t, cfg, query(t, "score", nil)), []string{"a"})
		deepEqual(t, readKeys(t, cfg, query(t, "score", []any{0, 10})), []string{"a"})

		q := query(t, "score", nil)
		q.Peek = PeekFirst
		deepEqual(t, readKeys(t, cfg, q), []string{"a"})

		deepEqual(t, testutil.ToFloat64(m.Stale), 4.0)
	})
}

func setup(t testing.TB) *KVStore {
	t.Helper()

	dbFile := must(os.CreateTemp("", "librarian_test_*.db"))
	t.Logf("DB: %s", dbFile.Name())
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store := must(OpenBolt(dbFile.Name(), BoltOptions{
		IsTesting: true,
	}))
	t.Cleanup(func() { store.Close() })
	return store
}

func setupPebble(t testing.TB) *PebbleStore {
	t.Helper()
	store := must(OpenPebble(filepath.Join(t.TempDir(), "pebble"), PebbleOptions{FS: vfs.NewMem()}))
	t.Cleanup(func() { store.Close() })
	return store
}

// testLogger returns a debug logger that writes through t.Log, so its output
// only shows for failed tests or with -v.
func testLogger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// eachStore runs f once per Store implementation.
func eachStore(t *testing.T, f func(t *testing.T, store Store)) {
	t.Run("mem", func(t *testing.T) {
		store := NewMemStore()
		t.Cleanup(func() { store.Close() })
		f(t, store)
	})
	t.Run("bolt", func(t *testing.T) {
		f(t, setup(t))
	})
	t.Run("pebble", func(t *testing.T) {
		f(t, setupPebble(t))
	})
}

func query(t testing.TB, k, v any) Query {
	t.Helper()
	return must(ParseQuery(k, v))
}

func readAll(t testing.TB, cfg Config, q Query) []Document {
	t.Helper()
	c, err := Read(cfg, q)
	if err != nil {
		t.Fatalf("Read(%v) failed: %v", q, err)
	}
	docs, err := All(c)
	if err != nil {
		t.Fatalf("Read(%v) cursor failed: %v", q, err)
	}
	return docs
}

func readKeys(t testing.TB, cfg Config, q Query) []string {
	t.Helper()
	return docKeys(readAll(t, cfg, q))
}

func docKeys(docs []Document) []string {
	var keys []string
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	return keys
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isempty[T any, S ~[]T](t testing.TB, a S) {
	if len(a) > 0 {
		t.Helper()
		t.Errorf("** got %v, wanted empty slice", a)
	}
}

func x(data string) []byte {
	data = strings.ReplaceAll(data, " ", "")
	return must(hex.DecodeString(data))
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}
