package boltengine

import (
	"bytes"

	bolt "go.etcd.io/bbolt"

	"github.com/Giulio2002/bufdb/engine"
	"github.com/Giulio2002/bufdb/internal/pairnav"
)

// plainStore is a bucket holding one value per key.
type plainStore struct {
	b *bolt.Bucket
}

func (s plainStore) Ceil(key, val []byte) ([]byte, []byte, bool) {
	c := s.b.Cursor()
	k, v := c.Seek(key)
	if k != nil && len(val) > 0 && bytes.Equal(k, key) && bytes.Compare(v, val) < 0 {
		k, v = c.Next()
	}
	return k, v, k != nil
}

func (s plainStore) Lower(key, val []byte) ([]byte, []byte, bool) {
	c := s.b.Cursor()
	k, v := c.Seek(key)
	if k == nil {
		k, v = c.Last()
		return k, v, k != nil
	}
	if len(val) > 0 && bytes.Equal(k, key) && bytes.Compare(v, val) < 0 {
		return k, v, true
	}
	k, v = c.Prev()
	return k, v, k != nil
}

func (s plainStore) Min() ([]byte, []byte, bool) {
	k, v := s.b.Cursor().First()
	return k, v, k != nil
}

func (s plainStore) Max() ([]byte, []byte, bool) {
	k, v := s.b.Cursor().Last()
	return k, v, k != nil
}

// dupStore is a bucket of nested buckets, one per key, whose keys are the
// key's duplicate values.
type dupStore struct {
	b *bolt.Bucket
}

func (s dupStore) firstDup(k []byte) []byte {
	dv, _ := s.b.Bucket(k).Cursor().First()
	return dv
}

func (s dupStore) lastDup(k []byte) []byte {
	dv, _ := s.b.Bucket(k).Cursor().Last()
	return dv
}

func (s dupStore) Ceil(key, val []byte) ([]byte, []byte, bool) {
	c := s.b.Cursor()
	k, _ := c.Seek(key)
	if k == nil {
		return nil, nil, false
	}
	if len(val) > 0 && bytes.Equal(k, key) {
		if dv, _ := s.b.Bucket(k).Cursor().Seek(val); dv != nil {
			return k, dv, true
		}
		if k, _ = c.Next(); k == nil {
			return nil, nil, false
		}
	}
	return k, s.firstDup(k), true
}

func (s dupStore) Lower(key, val []byte) ([]byte, []byte, bool) {
	c := s.b.Cursor()
	k, _ := c.Seek(key)
	if k == nil {
		if k, _ = c.Last(); k == nil {
			return nil, nil, false
		}
		return k, s.lastDup(k), true
	}
	if len(val) > 0 && bytes.Equal(k, key) {
		sc := s.b.Bucket(k).Cursor()
		dv, _ := sc.Seek(val)
		if dv == nil {
			dv, _ = sc.Last()
		} else {
			dv, _ = sc.Prev()
		}
		if dv != nil {
			return k, dv, true
		}
	}
	if k, _ = c.Prev(); k == nil {
		return nil, nil, false
	}
	return k, s.lastDup(k), true
}

func (s dupStore) Min() ([]byte, []byte, bool) {
	k, _ := s.b.Cursor().First()
	if k == nil {
		return nil, nil, false
	}
	return k, s.firstDup(k), true
}

func (s dupStore) Max() ([]byte, []byte, bool) {
	k, _ := s.b.Cursor().Last()
	if k == nil {
		return nil, nil, false
	}
	return k, s.lastDup(k), true
}

// Cursor is a bolt engine cursor. bolt cursors are invalidated by writes, so
// every operation seeks afresh from the tracked position.
type Cursor struct {
	txn    *Txn
	dbi    engine.DBI
	nav    *pairnav.Cursor
	closed bool
}

func (c *Cursor) table(op string) (table, error) {
	if c.closed {
		return table{}, engine.Fail(op, engine.EINVAL)
	}
	return c.txn.table(op, c.dbi)
}

// Get performs a cursor operation.
func (c *Cursor) Get(key, val []byte, op uint) ([]byte, []byte, error) {
	t, err := c.table("cursor_get")
	if err != nil {
		return nil, nil, err
	}
	return c.nav.Get(t.store(), key, val, op)
}

// Put stores a pair and positions the cursor on it.
func (c *Cursor) Put(key, val []byte, flags uint) error {
	t, err := c.table("cursor_put")
	if err != nil {
		return err
	}
	if !c.txn.tx.Writable() {
		return engine.Fail("cursor_put", engine.EACCES)
	}

	if flags&engine.Current != 0 {
		ck, cv, ok := c.nav.Position()
		if !ok || c.nav.Deleted() {
			return engine.Fail("cursor_put", engine.EINVAL)
		}
		key = append([]byte(nil), ck...)
		if t.dupSort {
			if err := del(t, ck, cv); err != nil {
				return err
			}
		}
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
	if !c.txn.tx.Writable() {
		return engine.Fail("cursor_del", engine.EACCES)
	}
	k, v, ok := c.nav.Position()
	if !ok {
		return engine.Fail("cursor_del", engine.EINVAL)
	}
	if c.nav.Deleted() {
		return engine.Fail("cursor_del", engine.NotFound)
	}
	if !t.dupSort {
		v = nil
	}
	if err := del(t, k, v); err != nil {
		return err
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
	if !t.dupSort {
		if c.nav.Deleted() {
			return 0, nil
		}
		return 1, nil
	}
	sub := t.b.Bucket(k)
	if sub == nil {
		return 0, nil
	}
	// Stats only sees committed pages, so walk the values.
	var n uint64
	sc := sub.Cursor()
	for k, _ := sc.First(); k != nil; k, _ = sc.Next() {
		n++
	}
	return n, nil
}

// Close releases the cursor.
func (c *Cursor) Close() {
	c.closed = true
}
