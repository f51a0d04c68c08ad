package memengine

import (
	"github.com/google/btree"

	"github.com/Giulio2002/bufdb/engine"
)

// Page layout used to derive statistics, modelled on MDBX.
const (
	pageHeaderSize = 20
	nodeHeaderSize = 8
	nodePtrSize    = 2
	pgnoSize       = 4
)

// layout estimates how the tree's pairs would occupy MDBX-style pages.
func layout(t *btree.BTreeG[item], psize int) *engine.Stat {
	st := &engine.Stat{PSize: uint(psize), Entries: uint64(t.Len())}
	if t.Len() == 0 {
		return st
	}

	usable := psize - pageHeaderSize
	maxNode := usable / 2

	var leafBytes, keyBytes int
	t.Ascend(func(it item) bool {
		n := nodeHeaderSize + len(it.key) + len(it.val)
		if n > maxNode {
			// Large values live on overflow pages; the node keeps a page number.
			st.OverflowPages += uint64((pageHeaderSize + len(it.val) + psize - 1) / psize)
			n = nodeHeaderSize + len(it.key) + pgnoSize
		}
		leafBytes += n + nodePtrSize
		keyBytes += len(it.key)
		return true
	})

	leaves := (leafBytes + usable - 1) / usable
	st.LeafPages = uint64(leaves)
	st.Depth = 1

	avgBranch := nodeHeaderSize + keyBytes/t.Len() + nodePtrSize
	fanout := usable / avgBranch
	if fanout < 2 {
		fanout = 2
	}
	for level := leaves; level > 1; {
		level = (level + fanout - 1) / fanout
		st.BranchPages += uint64(level)
		st.Depth++
	}
	return st
}
