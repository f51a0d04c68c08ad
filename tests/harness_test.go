// Package tests checks that every engine behaves like libmdbx when driven
// through bufdb cursors.
package tests

import (
	"bytes"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"testing"

	mdbx "github.com/erigontech/mdbx-go/mdbx"

	"github.com/Giulio2002/bufdb"
)

// engines lists every engine under test.
var engines = []string{"memory", "bolt", "mdbx"}

func openEnv(t *testing.T, name string) *bufdb.Env {
	t.Helper()
	env, err := bufdb.Open(bufdb.Config{
		Engine:    name,
		Path:      t.TempDir(),
		MapSize:   1 << 26,
		MaxTables: 10,
		NoSync:    true,
	})
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	t.Cleanup(func() { env.Close() })
	return env
}

// eachEngine runs fn against a fresh environment of every engine.
func eachEngine(t *testing.T, fn func(t *testing.T, env *bufdb.Env)) {
	for _, name := range engines {
		t.Run(name, func(t *testing.T) {
			fn(t, openEnv(t, name))
		})
	}
}

type pair struct {
	key, val []byte
}

// load stores pairs into a new table named "Table".
func load(t *testing.T, env *bufdb.Env, flags uint, pairs []pair) *bufdb.Table {
	t.Helper()
	tbl, err := env.OpenTable("Table", flags)
	if err != nil {
		t.Fatal(err)
	}
	err = env.Update(func(txn *bufdb.Txn) error {
		for _, p := range pairs {
			if err := txn.Put(tbl, p.key, p.val, 0); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

// withMdbx runs fn in a write transaction of a raw libmdbx environment
// holding pairs, for reference results.
func withMdbx(t *testing.T, dupSort bool, pairs []pair, fn func(txn *mdbx.Txn, dbi mdbx.DBI)) {
	t.Helper()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	env, err := mdbx.NewEnv(mdbx.Label("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.SetGeometry(-1, -1, 1<<26, -1, -1, 4096)
	env.SetOption(mdbx.OptMaxDB, 10)
	if err := env.Open(t.TempDir(), mdbx.Create, 0644); err != nil {
		t.Fatal(err)
	}

	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer txn.Abort()

	flags := uint(mdbx.Create)
	if dupSort {
		flags |= mdbx.DupSort
	}
	dbi, err := txn.OpenDBI("Table", flags, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pairs {
		if err := txn.Put(dbi, p.key, p.val, 0); err != nil {
			t.Fatal(err)
		}
	}
	fn(txn, dbi)
}

// step is one cursor operation of a script.
type step struct {
	op  string
	key []byte
}

func steps(ops ...string) []step {
	s := make([]step, len(ops))
	for i, op := range ops {
		s[i] = step{op: op}
	}
	return s
}

func repeat(op string, n int) []string {
	s := make([]string, n)
	for i := range s {
		s[i] = op
	}
	return s
}

var mdbxOps = map[string]uint{
	"first":    mdbx.First,
	"last":     mdbx.Last,
	"next":     mdbx.Next,
	"prev":     mdbx.Prev,
	"nextdup":  mdbx.NextDup,
	"prevdup":  mdbx.PrevDup,
	"firstdup": mdbx.FirstDup,
	"lastdup":  mdbx.LastDup,
	"seek":     mdbx.SetRange,
}

func show(k, v []byte) string {
	return fmt.Sprintf("%x=%x", k, v)
}

// traceMdbx replays script on a raw libmdbx cursor. Misses are "-"; a seek
// that lands on a greater key is prefixed with "~".
//
// The trace follows the cursor contract rather than raw libmdbx: dup moves
// report the current key, and a failed step re-anchors on the entry it
// started from. libmdbx parks the cursor at EOF instead, and a later Prev on
// a DUPSORT table then skips the last key's remaining duplicates.
func traceMdbx(t *testing.T, c *mdbx.Cursor, dupSort bool, script []step) []string {
	t.Helper()
	var (
		out        []string
		curK, curV []byte
	)
	for _, s := range script {
		op, ok := mdbxOps[s.op]
		if !ok {
			t.Fatalf("unknown op %q", s.op)
		}
		k, v, err := c.Get(s.key, nil, op)
		switch {
		case mdbx.IsNotFound(err):
			out = append(out, "-")
			switch {
			case s.op == "seek":
				curK, curV = nil, nil
			case curK != nil:
				anchor := uint(mdbx.Set)
				if dupSort {
					anchor = mdbx.GetBoth
				}
				if _, _, err := c.Get(curK, curV, anchor); err != nil {
					t.Fatalf("re-anchor after %s: %v", s.op, err)
				}
			}
			continue
		case err != nil:
			t.Fatalf("%s: %v", s.op, err)
		}
		if k == nil {
			k = curK
		}
		curK = append([]byte{}, k...)
		curV = append([]byte{}, v...)
		if s.op == "seek" && !bytes.Equal(k, s.key) {
			out = append(out, "~"+show(k, v))
		} else {
			out = append(out, show(k, v))
		}
	}
	return out
}

// traceCursor replays script on a bufdb cursor.
func traceCursor(t *testing.T, c *bufdb.Cursor, script []step) []string {
	t.Helper()
	moves := map[string]func() (bool, error){
		"first":    c.First,
		"last":     c.Last,
		"next":     c.Next,
		"prev":     c.Prev,
		"nextdup":  c.NextDup,
		"prevdup":  c.PrevDup,
		"firstdup": c.FirstDup,
		"lastdup":  c.LastDup,
	}
	var out []string
	for _, s := range script {
		var (
			ok  bool
			err error
		)
		if s.op == "seek" {
			ok, err = c.Seek(s.key)
		} else {
			move, known := moves[s.op]
			if !known {
				t.Fatalf("unknown op %q", s.op)
			}
			ok, err = move()
		}
		switch {
		case err != nil:
			t.Fatalf("%s: %v", s.op, err)
		case ok:
			out = append(out, show(c.Key(), c.Val()))
		case s.op == "seek" && c.Positioned():
			out = append(out, "~"+show(c.Key(), c.Val()))
		default:
			out = append(out, "-")
		}
	}
	return out
}

func compareTraces(t *testing.T, script []step, want, got []string) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("trace length: want %d, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("step %d (%s %x): want %s, got %s", i, script[i].op, script[i].key, want[i], got[i])
		}
	}
}

// randomPairs returns n pairs with random non-empty keys and values. With
// dups, keys repeat so that most keys carry several values.
func randomPairs(seed int64, n int, dups bool) []pair {
	rng := rand.New(rand.NewSource(seed))
	randBytes := func(max int) []byte {
		b := make([]byte, 1+rng.Intn(max))
		rng.Read(b)
		return b
	}
	var keys [][]byte
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		var k []byte
		if dups && len(keys) > 0 && rng.Intn(3) > 0 {
			k = keys[rng.Intn(len(keys))]
		} else {
			k = randBytes(12)
			keys = append(keys, k)
		}
		pairs = append(pairs, pair{key: k, val: randBytes(16)})
	}
	return pairs
}

// sortedPairs returns the table contents pairs produce: sorted by key then
// value, with duplicates collapsed (or, for plain tables, the last value
// of each key).
func sortedPairs(pairs []pair, dupSort bool) []pair {
	m := make(map[string]map[string]bool)
	last := make(map[string][]byte)
	for _, p := range pairs {
		if m[string(p.key)] == nil {
			m[string(p.key)] = make(map[string]bool)
		}
		m[string(p.key)][string(p.val)] = true
		last[string(p.key)] = p.val
	}
	var out []pair
	for k, vals := range m {
		if !dupSort {
			out = append(out, pair{key: []byte(k), val: last[k]})
			continue
		}
		for v := range vals {
			out = append(out, pair{key: []byte(k), val: []byte(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].key, out[j].key); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].val, out[j].val) < 0
	})
	return out
}

// contents reads the whole table with a fresh cursor.
func contents(t *testing.T, tbl *bufdb.Table) []string {
	t.Helper()
	c, err := tbl.BufferCursor()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	var out []string
	for ok, err := c.First(); ok; ok, err = c.Next() {
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, show(c.Key(), c.Val()))
	}
	return out
}
