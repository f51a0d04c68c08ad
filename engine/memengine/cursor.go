package memengine

import (
	"github.com/google/btree"

	"github.com/Giulio2002/bufdb/engine"
	"github.com/Giulio2002/bufdb/internal/pairnav"
)

// treeStore exposes a tree to pairnav.
type treeStore struct {
	t *btree.BTreeG[item]
}

func (s treeStore) Ceil(key, val []byte) (k, v []byte, ok bool) {
	s.t.AscendGreaterOrEqual(item{key: key, val: val}, func(it item) bool {
		k, v, ok = it.key, it.val, true
		return false
	})
	return
}

func (s treeStore) Lower(key, val []byte) (k, v []byte, ok bool) {
	s.t.DescendLessOrEqual(item{key: key, val: val}, func(it item) bool {
		if !less(it, item{key: key, val: val}) {
			return true
		}
		k, v, ok = it.key, it.val, true
		return false
	})
	return
}

func (s treeStore) Min() ([]byte, []byte, bool) {
	it, ok := s.t.Min()
	return it.key, it.val, ok
}

func (s treeStore) Max() ([]byte, []byte, bool) {
	it, ok := s.t.Max()
	return it.key, it.val, ok
}

// Cursor is a memory engine cursor.
type Cursor struct {
	txn    *Txn
	dbi    engine.DBI
	nav    *pairnav.Cursor
	closed bool
}

func (c *Cursor) table(op string) (*table, error) {
	if c.closed {
		return nil, engine.Fail(op, engine.EINVAL)
	}
	return c.txn.table(op, c.dbi)
}

// Get performs a cursor operation.
func (c *Cursor) Get(key, val []byte, op uint) ([]byte, []byte, error) {
	t, err := c.table("cursor_get")
	if err != nil {
		return nil, nil, err
	}
	return c.nav.Get(treeStore{t.tree}, key, val, op)
}

// Put stores a pair and positions the cursor on it.
func (c *Cursor) Put(key, val []byte, flags uint) error {
	t, err := c.table("cursor_put")
	if err != nil {
		return err
	}
	if c.txn.readOnly {
		return engine.Fail("cursor_put", engine.EACCES)
	}

	if flags&engine.Current != 0 {
		ck, cv, ok := c.nav.Position()
		if !ok || c.nav.Deleted() {
			return engine.Fail("cursor_put", engine.EINVAL)
		}
		t.tree.Delete(item{key: ck, val: cv})
		key = ck
		flags &^= engine.Current
	}

	if err := put(t, key, val, flags); err != nil {
		return err
	}
	c.nav.MoveTo(key, val)
	return nil
}

// Del deletes the pair at the cursor.
func (c *Cursor) Del(flags uint) error {
	t, err := c.table("cursor_del")
	if err != nil {
		return err
	}
	if c.txn.readOnly {
		return engine.Fail("cursor_del", engine.EACCES)
	}
	k, v, ok := c.nav.Position()
	if !ok {
		return engine.Fail("cursor_del", engine.EINVAL)
	}
	if c.nav.Deleted() {
		return engine.Fail("cursor_del", engine.NotFound)
	}
	if _, found := t.tree.Delete(item{key: k, val: v}); !found {
		return engine.Fail("cursor_del", engine.NotFound)
	}
	c.nav.MarkDeleted()
	return nil
}

// Count returns the number of duplicates of the current key.
func (c *Cursor) Count() (uint64, error) {
	t, err := c.table("cursor_count")
	if err != nil {
		return 0, err
	}
	k, _, ok := c.nav.Position()
	if !ok {
		return 0, engine.Fail("cursor_count", engine.EINVAL)
	}
	var n uint64
	t.tree.AscendRange(item{key: k}, item{key: pairnav.Succ(k)}, func(item) bool {
		n++
		return true
	})
	return n, nil
}

// Close releases the cursor.
func (c *Cursor) Close() {
	c.closed = true
}
