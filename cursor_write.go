package bufdb

import (
	"github.com/Giulio2002/bufdb/engine"
)

// Err returns the first error recorded by a staging call since the last
// commit.
func (c *Cursor) Err() error { return c.err }

// stage appends n bytes to b through write. The first failure sticks and
// turns later staging calls into no-ops.
func (c *Cursor) stage(b *DirectBuffer, n int, write func(b *DirectBuffer, off int) error) *Cursor {
	if c.err != nil {
		return c
	}
	switch {
	case c.closed:
		c.err = NewError(ErrBadCursor)
	case c.mode != Writer:
		c.err = NewError(ErrPermissionDenied)
	default:
		if err := c.room(b, n); err != nil {
			c.err = err
		} else if err := write(b, b.limit); err != nil {
			c.err = err
		}
	}
	return c
}

// room makes n bytes fit after b's limit. Only the cursor's own staging
// buffers grow.
func (c *Cursor) room(b *DirectBuffer, n int) error {
	if c.ownStaging {
		return b.ensure(n)
	}
	return b.check(b.limit, n)
}

func (c *Cursor) KeyWriteByte(v byte) *Cursor {
	return c.stage(c.skey, ByteSize, func(b *DirectBuffer, off int) error { return b.PutByte(off, v) })
}

func (c *Cursor) KeyWriteInt32(v int32) *Cursor {
	return c.stage(c.skey, Int32Size, func(b *DirectBuffer, off int) error { return b.PutInt32(off, v) })
}

func (c *Cursor) KeyWriteInt64(v int64) *Cursor {
	return c.stage(c.skey, Int64Size, func(b *DirectBuffer, off int) error { return b.PutInt64(off, v) })
}

func (c *Cursor) KeyWriteFloat32(v float32) *Cursor {
	return c.stage(c.skey, Float32Size, func(b *DirectBuffer, off int) error { return b.PutFloat32(off, v) })
}

func (c *Cursor) KeyWriteFloat64(v float64) *Cursor {
	return c.stage(c.skey, Float64Size, func(b *DirectBuffer, off int) error { return b.PutFloat64(off, v) })
}

func (c *Cursor) KeyWriteBytes(p []byte) *Cursor {
	return c.stage(c.skey, len(p), func(b *DirectBuffer, off int) error { return b.PutBytes(off, p) })
}

// KeyWriteUTF8 stages s and a NUL terminator.
func (c *Cursor) KeyWriteUTF8(s string) *Cursor {
	return c.stage(c.skey, len(s)+1, func(b *DirectBuffer, off int) error {
		_, err := b.PutUTF8(off, s)
		return err
	})
}

func (c *Cursor) KeyWriteUTF8Bytes(p []byte) *Cursor {
	return c.stage(c.skey, len(p)+1, func(b *DirectBuffer, off int) error {
		_, err := b.PutUTF8Bytes(off, p)
		return err
	})
}

// KeyWriteBuffer stages the first n bytes of buf.
func (c *Cursor) KeyWriteBuffer(buf *DirectBuffer, n int) *Cursor {
	return c.stage(c.skey, n, func(b *DirectBuffer, off int) error { return copyBuffer(b, off, buf, n) })
}

func (c *Cursor) ValWriteByte(v byte) *Cursor {
	return c.stage(c.sval, ByteSize, func(b *DirectBuffer, off int) error { return b.PutByte(off, v) })
}

func (c *Cursor) ValWriteInt32(v int32) *Cursor {
	return c.stage(c.sval, Int32Size, func(b *DirectBuffer, off int) error { return b.PutInt32(off, v) })
}

func (c *Cursor) ValWriteInt64(v int64) *Cursor {
	return c.stage(c.sval, Int64Size, func(b *DirectBuffer, off int) error { return b.PutInt64(off, v) })
}

func (c *Cursor) ValWriteFloat32(v float32) *Cursor {
	return c.stage(c.sval, Float32Size, func(b *DirectBuffer, off int) error { return b.PutFloat32(off, v) })
}

func (c *Cursor) ValWriteFloat64(v float64) *Cursor {
	return c.stage(c.sval, Float64Size, func(b *DirectBuffer, off int) error { return b.PutFloat64(off, v) })
}

func (c *Cursor) ValWriteBytes(p []byte) *Cursor {
	return c.stage(c.sval, len(p), func(b *DirectBuffer, off int) error { return b.PutBytes(off, p) })
}

// ValWriteUTF8 stages s and a NUL terminator.
func (c *Cursor) ValWriteUTF8(s string) *Cursor {
	return c.stage(c.sval, len(s)+1, func(b *DirectBuffer, off int) error {
		_, err := b.PutUTF8(off, s)
		return err
	})
}

func (c *Cursor) ValWriteUTF8Bytes(p []byte) *Cursor {
	return c.stage(c.sval, len(p)+1, func(b *DirectBuffer, off int) error {
		_, err := b.PutUTF8Bytes(off, p)
		return err
	})
}

// ValWriteBuffer stages the first n bytes of buf.
func (c *Cursor) ValWriteBuffer(buf *DirectBuffer, n int) *Cursor {
	return c.stage(c.sval, n, func(b *DirectBuffer, off int) error { return copyBuffer(b, off, buf, n) })
}

func copyBuffer(dst *DirectBuffer, off int, src *DirectBuffer, n int) error {
	if src == nil {
		return NewError(ErrInvalidArgument)
	}
	if err := src.check(0, n); err != nil {
		return err
	}
	return dst.PutBytes(off, src.view.data[:n])
}

// commitable checks the cursor can commit and hands back a pending staging
// error. The error is consumed along with the staged bytes.
func (c *Cursor) commitable() error {
	if c.closed {
		return NewError(ErrBadCursor)
	}
	if c.mode != Writer {
		c.err = nil
		return NewError(ErrPermissionDenied)
	}
	if err := c.err; err != nil {
		c.clearStaging()
		return err
	}
	return nil
}

func (c *Cursor) clearStaging() {
	c.skey.Reset()
	c.sval.Reset()
	c.err = nil
}

// reposition moves onto (key, val) after a write. val only matters for
// DUPSORT tables.
func (c *Cursor) reposition(key, val []byte) error {
	op := engine.Set
	if c.table.dupSort && val != nil {
		op = engine.GetBoth
	}
	k, v, err := c.ec.Get(key, val, op)
	if err != nil {
		if engine.IsNotFound(err) {
			c.positioned = false
			return nil
		}
		return fromEngine(err)
	}
	if k == nil {
		k = key
	}
	c.refresh(k, v)
	return nil
}

// Put inserts the staged entry unless its key exists. On a conflict it
// returns false with no error and moves to the existing key. The staged
// bytes are cleared either way.
func (c *Cursor) Put() (bool, error) {
	if err := c.commitable(); err != nil {
		return false, err
	}
	defer c.clearStaging()

	key, val := c.skey.Written(), c.sval.Written()
	if err := c.ec.Put(key, val, engine.NoOverwrite); err != nil {
		if engine.IsKeyExist(err) {
			return false, c.reposition(key, nil)
		}
		return false, fromEngine(err)
	}
	return true, c.reposition(key, val)
}

// Overwrite stores the staged entry, replacing the value of a plain table or
// adding a duplicate to a DUPSORT table. With no staged key bytes it writes
// to the current key.
func (c *Cursor) Overwrite() error {
	if err := c.commitable(); err != nil {
		return err
	}
	defer c.clearStaging()

	key, val := c.skey.Written(), c.sval.Written()
	if len(key) == 0 {
		if !c.positioned {
			return NewError(ErrNotPositioned)
		}
		key = c.key.Bytes()
	}
	if err := c.ec.Put(key, val, engine.Upsert); err != nil && !engine.IsKeyExist(err) {
		return fromEngine(err)
	}
	return c.reposition(key, val)
}

// Append stores the staged entry at the end of the table. The staged key
// must sort after every existing key (for DUPSORT tables, the staged value
// after every value of an equal last key); otherwise the engine rejects it
// with ErrKeyMismatch.
func (c *Cursor) Append() error {
	if err := c.commitable(); err != nil {
		return err
	}
	defer c.clearStaging()

	flags := engine.Append
	if c.table.dupSort {
		flags |= engine.AppendDup
	}
	key, val := c.skey.Written(), c.sval.Written()
	if err := c.ec.Put(key, val, flags); err != nil {
		return fromEngine(err)
	}
	return c.reposition(key, val)
}

// Delete removes the current entry. The key and value buffers keep the
// removed bytes until the next navigation; Next then yields the successor
// and Prev the predecessor.
func (c *Cursor) Delete() error {
	if c.closed {
		return NewError(ErrBadCursor)
	}
	if c.mode != Writer {
		return NewError(ErrPermissionDenied)
	}
	if !c.positioned {
		return NewError(ErrNotPositioned)
	}
	if c.deleted {
		return NewError(ErrNotFound)
	}
	if err := c.ec.Del(0); err != nil {
		return fromEngine(err)
	}
	c.deleted = true
	return nil
}
