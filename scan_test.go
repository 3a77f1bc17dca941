package librarian

import (
	"encoding/hex"
	"testing"
)

func TestRawScan(t *testing.T) {
	var (
		kb = x("10 12 14 40 44 47")
		k1 = x("10 12 14 40 44 48")
		k2 = x("10 12 14 40 44 49")
		k3 = x("10 12 14 40 44 50")
		k4 = x("10 12 14 40 44 51")
		ke = x("10 12 14 40 44 52")
		p  = x("10 12 14")
	)
	outside := [][]byte{x("10 12 13 ff"), x("10 12 15")}

	for _, st := range []struct {
		name string
		open func(t *testing.T) *KVStore
	}{
		{"mem", func(t *testing.T) *KVStore { return NewMemStore() }},
		{"bolt", func(t *testing.T) *KVStore { return setup(t) }},
	} {
		t.Run(st.name, func(t *testing.T) {
			store := st.open(t)
			ops := []Op{PutOp(k1, nil), PutOp(k2, nil), PutOp(k3, nil), PutOp(k4, nil)}
			for _, k := range outside {
				ops = append(ops, PutOp(k, nil))
			}
			ensure(store.Batch(ops))

			o := func(name string, rang RawRange, exp ...[]byte) {
				t.Helper()
				t.Run(name, func(t *testing.T) {
					rawScan(t, store, rang, exp...)
				})
			}

			o("prefix", RawRange{Prefix: p}, k1, k2, k3, k4)
			o("prefix reverse", RawRange{Prefix: p, Reverse: true}, k4, k3, k2, k1)

			o("prefix + lower inc", RawRange{Prefix: p, Lower: k2, LowerInc: true}, k2, k3, k4)
			o("prefix + lower exc", RawRange{Prefix: p, Lower: k2, LowerInc: false}, k3, k4)
			o("prefix + lower inc reverse", RawRange{Prefix: p, Lower: k2, LowerInc: true, Reverse: true}, k4, k3, k2)
			o("prefix + lower exc reverse", RawRange{Prefix: p, Lower: k2, LowerInc: false, Reverse: true}, k4, k3)
			o("prefix + upper inc", RawRange{Prefix: p, Upper: k3, UpperInc: true}, k1, k2, k3)
			o("prefix + upper exc", RawRange{Prefix: p, Upper: k3, UpperInc: false}, k1, k2)
			o("prefix + upper inc reverse", RawRange{Prefix: p, Upper: k3, UpperInc: true, Reverse: true}, k3, k2, k1)
			o("prefix + upper exc reverse", RawRange{Prefix: p, Upper: k3, UpperInc: false, Reverse: true}, k2, k1)

			o("inclusive", rawII(k2, k3), k2, k3)
			o("inclusive reverse", rawII(k2, k3).reversed(), k3, k2)
			o("inclusive-exclusive", rawIE(k2, k4), k2, k3)
			o("inclusive missing bounds", rawII(kb, ke), k1, k2, k3, k4)
			o("inclusive missing bounds reverse", rawII(kb, ke).reversed(), k4, k3, k2, k1)
			o("empty", rawII(k3, k2))
			o("empty reverse", rawII(k3, k2).reversed())

			o("first lower exc", RawRange{Lower: kb, LowerInc: false, Upper: ke}, k1, k2, k3, k4)
			o("last upper exc reverse", RawRange{Lower: kb, Upper: ke, UpperInc: false, Reverse: true}, k4, k3, k2, k1)

			o("everything", rawOO(), outside[0], k1, k2, k3, k4, outside[1])
			o("everything reverse", rawOO().reversed(), outside[1], k4, k3, k2, k1, outside[0])
			o("prefixed", rawII(k2, ke).prefixed(p), k2, k3, k4)
		})
	}
}

func TestRawScan_HighPrefix(t *testing.T) {
	store := NewMemStore()
	a, b, c := x("ff ff 01"), x("ff ff 02"), x("ff fe")
	ensure(store.Batch([]Op{PutOp(a, nil), PutOp(b, nil), PutOp(c, nil)}))
	rawScan(t, store, rawPrefix(x("ff ff")).reversed(), b, a)
	rawScan(t, store, rawPrefix(x("ff")).reversed(), b, a, c)
}

func TestRawScan_BoundOutsidePrefixPanics(t *testing.T) {
	store := NewMemStore()
	ensure(store.Put(x("10"), nil))
	assertPanics(t, func() {
		rawScan(t, store, rawII(x("20"), nil).prefixed(x("10")))
	})
	assertPanics(t, func() {
		rawScan(t, store, rawII(nil, x("20")).prefixed(x("10")).reversed())
	})
}

func rawScan(t testing.TB, store *KVStore, rang RawRange, exp ...[]byte) {
	t.Helper()
	tx := must(store.st.BeginTx(false))
	defer tx.Rollback()
	cur := rang.newCursor(tx.Bucket(store.bucket).Cursor(), testLogger(t))

	var out []string
	for cur.Next() {
		out = append(out, hex.EncodeToString(cur.Key()))
	}
	var expstr []string
	for _, k := range exp {
		expstr = append(expstr, hex.EncodeToString(k))
	}
	deepEqual(t, out, expstr)
}
