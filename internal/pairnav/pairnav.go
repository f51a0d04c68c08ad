// Package pairnav implements MDBX cursor movement over an ordered set of
// key/value pairs.
//
// Engines that do not track cursor positions natively (bolt, the memory
// engine) expose their table as a Store and let Cursor translate cursor
// operations into ordered lookups. The position is kept as a private copy of
// the current pair, so it survives writes that invalidate engine memory.
package pairnav

import (
	"bytes"

	"github.com/Giulio2002/bufdb/engine"
)

// Store is one table's pairs in (key, value) order. A nil value sorts before
// every value of the same key. Plain tables hold one pair per key.
type Store interface {
	// Ceil returns the first pair >= (key, val).
	Ceil(key, val []byte) (k, v []byte, ok bool)
	// Lower returns the last pair < (key, val).
	Lower(key, val []byte) (k, v []byte, ok bool)
	Min() (k, v []byte, ok bool)
	Max() (k, v []byte, ok bool)
}

// Compare orders pairs by key, then value.
func Compare(k1, v1, k2, v2 []byte) int {
	if c := bytes.Compare(k1, k2); c != 0 {
		return c
	}
	return bytes.Compare(v1, v2)
}

// Succ returns the smallest byte string greater than b.
func Succ(b []byte) []byte {
	s := make([]byte, len(b)+1)
	copy(s, b)
	return s
}

// Cursor tracks a position in a Store.
type Cursor struct {
	dupSort    bool
	key, val   []byte
	positioned bool
	deleted    bool
}

// New returns an unpositioned cursor.
func New(dupSort bool) *Cursor {
	return &Cursor{dupSort: dupSort}
}

// DupSort reports whether the cursor walks a DUPSORT table.
func (c *Cursor) DupSort() bool { return c.dupSort }

// Position returns the current pair. After MarkDeleted it still returns the
// deleted pair.
func (c *Cursor) Position() (key, val []byte, ok bool) {
	return c.key, c.val, c.positioned
}

// Deleted reports whether the pair at the current position was deleted.
func (c *Cursor) Deleted() bool { return c.deleted }

// MoveTo positions the cursor at (key, val).
func (c *Cursor) MoveTo(key, val []byte) {
	c.key = append(c.key[:0], key...)
	c.val = append(c.val[:0], val...)
	c.positioned = true
	c.deleted = false
}

// MarkDeleted records that the current pair was removed from the store.
func (c *Cursor) MarkDeleted() {
	c.deleted = true
}

// Reset unpositions the cursor.
func (c *Cursor) Reset() {
	c.positioned = false
	c.deleted = false
}

var errNotFound = engine.Fail("cursor_get", engine.NotFound)

// Get performs a cursor operation against s. A failed move returns NotFound
// and leaves the position unchanged.
func (c *Cursor) Get(s Store, key, val []byte, op uint) ([]byte, []byte, error) {
	var (
		k, v []byte
		ok   bool
	)

	switch op {
	case engine.First:
		k, v, ok = s.Min()

	case engine.Last:
		k, v, ok = s.Max()

	case engine.Next:
		if !c.positioned {
			k, v, ok = s.Min()
			break
		}
		k, v, ok = c.next(s)

	case engine.Prev:
		if !c.positioned {
			k, v, ok = s.Max()
			break
		}
		k, v, ok = c.prev(s)

	case engine.NextDup:
		if !c.positioned {
			return nil, nil, engine.Fail("cursor_get", engine.EINVAL)
		}
		if !c.dupSort {
			return nil, nil, errNotFound
		}
		k, v, ok = c.next(s)
		ok = ok && bytes.Equal(k, c.key)

	case engine.PrevDup:
		if !c.positioned {
			return nil, nil, engine.Fail("cursor_get", engine.EINVAL)
		}
		if !c.dupSort {
			return nil, nil, errNotFound
		}
		k, v, ok = c.prev(s)
		ok = ok && bytes.Equal(k, c.key)

	case engine.FirstDup:
		if !c.positioned {
			return nil, nil, engine.Fail("cursor_get", engine.EINVAL)
		}
		k, v, ok = s.Ceil(c.key, nil)
		ok = ok && bytes.Equal(k, c.key)

	case engine.LastDup:
		if !c.positioned {
			return nil, nil, engine.Fail("cursor_get", engine.EINVAL)
		}
		k, v, ok = s.Lower(Succ(c.key), nil)
		ok = ok && bytes.Equal(k, c.key)

	case engine.NextNoDup:
		if !c.positioned {
			k, v, ok = s.Min()
			break
		}
		if c.deleted && !c.dupSort {
			k, v, ok = s.Ceil(c.key, nil)
			break
		}
		k, v, ok = s.Ceil(Succ(c.key), nil)

	case engine.PrevNoDup:
		if !c.positioned {
			k, v, ok = s.Max()
			break
		}
		k, v, ok = s.Lower(c.key, nil)

	case engine.Set:
		k, v, ok = s.Ceil(key, nil)
		ok = ok && bytes.Equal(k, key)

	case engine.SetRange:
		k, v, ok = s.Ceil(key, nil)

	case engine.GetBoth:
		if c.dupSort {
			k, v, ok = s.Ceil(key, val)
		} else {
			k, v, ok = s.Ceil(key, nil)
		}
		ok = ok && bytes.Equal(k, key) && bytes.Equal(v, val)

	case engine.GetBothRange:
		if !c.dupSort {
			return nil, nil, engine.Fail("cursor_get", engine.Incompatible)
		}
		k, v, ok = s.Ceil(key, val)
		ok = ok && bytes.Equal(k, key)

	case engine.GetCurrent:
		if !c.positioned {
			return nil, nil, engine.Fail("cursor_get", engine.EINVAL)
		}
		if c.deleted {
			return nil, nil, errNotFound
		}
		if c.dupSort {
			k, v, ok = s.Ceil(c.key, c.val)
		} else {
			k, v, ok = s.Ceil(c.key, nil)
		}
		ok = ok && bytes.Equal(k, c.key)

	default:
		return nil, nil, engine.Fail("cursor_get", engine.EINVAL)
	}

	if !ok {
		return nil, nil, errNotFound
	}
	c.MoveTo(k, v)
	return k, v, nil
}

func (c *Cursor) next(s Store) ([]byte, []byte, bool) {
	switch {
	case c.dupSort && c.deleted:
		return s.Ceil(c.key, c.val)
	case c.dupSort:
		return s.Ceil(c.key, Succ(c.val))
	case c.deleted:
		return s.Ceil(c.key, nil)
	default:
		return s.Ceil(Succ(c.key), nil)
	}
}

func (c *Cursor) prev(s Store) ([]byte, []byte, bool) {
	if c.dupSort {
		return s.Lower(c.key, c.val)
	}
	return s.Lower(c.key, nil)
}
