package tests

import (
	"fmt"
	"testing"

	mdbx "github.com/erigontech/mdbx-go/mdbx"

	"github.com/Giulio2002/bufdb"
)

func dupPairs() []pair {
	var pairs []pair
	for k := 0; k < 4; k++ {
		for v := k + 1; v > 0; v-- {
			pairs = append(pairs, pair{
				key: []byte(fmt.Sprintf("key%d", k)),
				val: []byte(fmt.Sprintf("value%d", v)),
			})
		}
	}
	return pairs
}

// TestDupTraversal compares duplicate-run moves with libmdbx.
func TestDupTraversal(t *testing.T) {
	pairs := dupPairs()
	script := steps(
		"first", "nextdup", "nextdup",
		"next", "nextdup", "nextdup", "prevdup", "prevdup", "prevdup",
		"lastdup", "next", "firstdup", "nextdup", "lastdup", "prev",
		"last", "prevdup", "firstdup", "prev", "lastdup",
	)
	script = append(script,
		step{op: "seek", key: []byte("key2")}, step{op: "lastdup"},
		step{op: "seek", key: []byte("key1x")}, step{op: "nextdup"},
	)

	var want []string
	withMdbx(t, true, pairs, func(txn *mdbx.Txn, dbi mdbx.DBI) {
		c, err := txn.OpenCursor(dbi)
		if err != nil {
			t.Fatal(err)
		}
		defer c.Close()
		want = traceMdbx(t, c, true, script)
	})

	eachEngine(t, func(t *testing.T, env *bufdb.Env) {
		tbl := load(t, env, bufdb.DupSort, pairs)
		c, err := tbl.BufferCursor()
		if err != nil {
			t.Fatal(err)
		}
		defer c.Close()
		compareTraces(t, script, want, traceCursor(t, c, script))
	})
}

func TestDupCount(t *testing.T) {
	eachEngine(t, func(t *testing.T, env *bufdb.Env) {
		tbl := load(t, env, bufdb.DupSort, dupPairs())
		c, err := tbl.BufferCursor()
		if err != nil {
			t.Fatal(err)
		}
		defer c.Close()

		k := 0
		for ok, err := c.First(); ok; ok, err = c.Next() {
			if err != nil {
				t.Fatal(err)
			}
			n, err := c.Count()
			if err != nil {
				t.Fatal(err)
			}
			if n != uint64(k+1) {
				t.Errorf("%s: want %d duplicates, got %d", c.Key(), k+1, n)
			}
			// Skip the rest of the run.
			if _, err := c.LastDup(); err != nil {
				t.Fatal(err)
			}
			k++
		}
		if k != 4 {
			t.Errorf("keys: want 4, got %d", k)
		}
	})
}
