package bufdb

import (
	"bytes"

	"github.com/Giulio2002/bufdb/engine"
)

// CursorOption configures a cursor at open time.
type CursorOption func(*cursorOptions)

type cursorOptions struct {
	key, val *DirectBuffer
}

// WithBuffers makes the cursor use caller-supplied buffers. A Reader cursor
// re-points them at each entry it visits and restores them on Close. A
// Writer cursor stages into them instead of its own buffers, so bytes put
// into them directly count as staged. Caller buffers never grow.
func WithBuffers(key, val *DirectBuffer) CursorOption {
	return func(o *cursorOptions) {
		o.key, o.val = key, val
	}
}

// Cursor walks a table and exposes the current entry through key and value
// DirectBuffers.
//
// A Reader cursor exposes entries in place: its buffers point into engine
// memory and stay valid until the next navigation or the next write in the
// transaction. A Writer cursor copies each entry into memory it owns, so its
// buffers are snapshots that survive Delete.
type Cursor struct {
	table   *Table
	txn     *Txn
	ec      engine.Cursor
	id      uint32
	mode    Mode
	ownsTxn bool

	key, val *DirectBuffer

	// Writer snapshot memory.
	keyRegion, valRegion *View

	// Caller buffers handed to a Reader, restored on Close.
	saved      [2]DirectBuffer
	callerBufs bool

	// Writer staging.
	skey, sval *DirectBuffer
	ownStaging bool
	err        error

	positioned bool
	deleted    bool
	closed     bool
}

func (t *Table) newCursor(txn *Txn, mode Mode, opts []CursorOption) (*Cursor, error) {
	var o cursorOptions
	for _, opt := range opts {
		opt(&o)
	}
	if (o.key == nil) != (o.val == nil) {
		return nil, NewError(ErrInvalidArgument)
	}
	callerBufs := o.key != nil
	if callerBufs {
		for _, b := range []*DirectBuffer{o.key, o.val} {
			if !b.view.direct || b.view.freed || (mode == Writer && b.view.readOnly) {
				return nil, NewError(ErrInvalidArgument)
			}
		}
	}
	if mode == Writer && txn.readOnly {
		return nil, NewError(ErrPermissionDenied)
	}

	ec, err := txn.et.OpenCursor(t.dbi)
	if err != nil {
		return nil, fromEngine(err)
	}

	c := &Cursor{
		table: t,
		txn:   txn,
		ec:    ec,
		mode:  mode,
		key:   &DirectBuffer{},
		val:   &DirectBuffer{},
	}

	if mode == Reader {
		if callerBufs {
			c.key, c.val = o.key, o.val
			c.saved = [2]DirectBuffer{*o.key, *o.val}
			c.callerBufs = true
		}
	} else {
		if err := c.initWriter(o); err != nil {
			ec.Close()
			return nil, err
		}
	}

	txn.track(c)
	return c, nil
}

func (c *Cursor) initWriter(o cursorOptions) error {
	var err error
	if c.keyRegion, err = AllocateDirect(0); err != nil {
		return err
	}
	if c.valRegion, err = AllocateDirect(0); err != nil {
		return err
	}
	if o.key != nil {
		c.skey, c.sval = o.key, o.val
		return nil
	}
	c.ownStaging = true
	if c.skey, err = AllocateBuffer(stagingInitialSize); err != nil {
		return err
	}
	if c.sval, err = AllocateBuffer(stagingInitialSize); err != nil {
		c.skey.Free()
		return err
	}
	return nil
}

// Mode returns the cursor mode.
func (c *Cursor) Mode() Mode { return c.mode }

// Table returns the table the cursor walks.
func (c *Cursor) Table() *Table { return c.table }

// Positioned reports whether the cursor is at an entry.
func (c *Cursor) Positioned() bool { return c.positioned && !c.closed }

func (c *Cursor) usable() error {
	if c.closed {
		return NewError(ErrBadCursor)
	}
	return nil
}

// refresh makes (k, v) the current entry.
func (c *Cursor) refresh(k, v []byte) {
	if c.mode == Reader {
		c.key.point(borrowed(k))
		c.val.point(borrowed(v))
	} else {
		c.key.point(snapshot(c.keyRegion, k))
		c.val.point(snapshot(c.valRegion, v))
	}
	c.positioned = true
	c.deleted = false
}

// snapshot copies b into region and returns a view of exactly len(b) bytes.
// When the region cannot grow the copy lands on the Go heap, and the view
// says so by not being direct.
func snapshot(region *View, b []byte) View {
	if err := region.grow(len(b)); err != nil {
		return View{data: append([]byte(nil), b...), own: Borrowed}
	}
	n := copy(region.data, b)
	return View{data: region.data[:n:n], own: Borrowed, direct: true}
}

func (c *Cursor) move(op uint, key, val []byte) (bool, error) {
	if err := c.usable(); err != nil {
		return false, err
	}
	var cur []byte
	if c.positioned {
		cur = c.key.Bytes()
	}
	k, v, err := c.ec.Get(key, val, op)
	if err != nil {
		if engine.IsNotFound(err) {
			return false, nil
		}
		return false, fromEngine(err)
	}
	if k == nil {
		// Some engines leave the key out of duplicate moves.
		if key != nil {
			k = key
		} else {
			k = cur
		}
	}
	c.refresh(k, v)
	return true, nil
}

// First moves to the first entry. It returns false if the table is empty.
func (c *Cursor) First() (bool, error) {
	return c.move(engine.First, nil, nil)
}

// Last moves to the last entry (the last duplicate of the last key).
func (c *Cursor) Last() (bool, error) {
	return c.move(engine.Last, nil, nil)
}

// Next moves to the next entry, crossing duplicate runs. At the end it
// returns false and stays where it was. An unpositioned cursor moves to the
// first entry.
func (c *Cursor) Next() (bool, error) {
	if !c.positioned {
		return c.First()
	}
	return c.move(engine.Next, nil, nil)
}

// Prev moves to the previous entry. At the start it returns false and stays
// where it was. An unpositioned cursor moves to the last entry.
func (c *Cursor) Prev() (bool, error) {
	if !c.positioned {
		return c.Last()
	}
	return c.move(engine.Prev, nil, nil)
}

func (c *Cursor) requirePosition() error {
	if err := c.usable(); err != nil {
		return err
	}
	if !c.positioned {
		return NewError(ErrNotPositioned)
	}
	return nil
}

// NextDup moves to the next value of the current key.
func (c *Cursor) NextDup() (bool, error) {
	if err := c.requirePosition(); err != nil {
		return false, err
	}
	if !c.table.dupSort {
		return false, nil
	}
	return c.move(engine.NextDup, nil, nil)
}

// PrevDup moves to the previous value of the current key.
func (c *Cursor) PrevDup() (bool, error) {
	if err := c.requirePosition(); err != nil {
		return false, err
	}
	if !c.table.dupSort {
		return false, nil
	}
	return c.move(engine.PrevDup, nil, nil)
}

// FirstDup moves to the first value of the current key.
func (c *Cursor) FirstDup() (bool, error) {
	if err := c.requirePosition(); err != nil {
		return false, err
	}
	if !c.table.dupSort {
		return !c.deleted, nil
	}
	return c.move(engine.FirstDup, nil, nil)
}

// LastDup moves to the last value of the current key.
func (c *Cursor) LastDup() (bool, error) {
	if err := c.requirePosition(); err != nil {
		return false, err
	}
	if !c.table.dupSort {
		return !c.deleted, nil
	}
	return c.move(engine.LastDup, nil, nil)
}

// Seek moves to key and reports whether it exists. On a miss the cursor
// rests on the nearest greater key, buffers refreshed, and Seek returns
// false; with no greater key the cursor becomes unpositioned.
func (c *Cursor) Seek(key []byte) (bool, error) {
	if err := c.usable(); err != nil {
		return false, err
	}
	k, v, err := c.ec.Get(key, nil, engine.SetRange)
	if err != nil {
		if engine.IsNotFound(err) {
			c.positioned = false
			c.deleted = false
			return false, nil
		}
		return false, fromEngine(err)
	}
	if k == nil {
		k = key
	}
	c.refresh(k, v)
	return bytes.Equal(k, key), nil
}

// SeekBuffer seeks to the bytes written to b.
func (c *Cursor) SeekBuffer(b *DirectBuffer) (bool, error) {
	return c.Seek(b.Written())
}

// Count returns the number of values of the current key.
func (c *Cursor) Count() (uint64, error) {
	if err := c.requirePosition(); err != nil {
		return 0, err
	}
	if !c.table.dupSort {
		if c.deleted {
			return 0, nil
		}
		return 1, nil
	}
	n, err := c.ec.Count()
	if err != nil {
		if engine.IsNotFound(err) {
			return 0, nil
		}
		return 0, fromEngine(err)
	}
	return n, nil
}

// KeyBuffer returns the buffer holding the current key.
func (c *Cursor) KeyBuffer() *DirectBuffer { return c.key }

// ValBuffer returns the buffer holding the current value.
func (c *Cursor) ValBuffer() *DirectBuffer { return c.val }

// Key returns the current key, or nil when unpositioned.
func (c *Cursor) Key() []byte {
	if !c.Positioned() {
		return nil
	}
	return c.key.Bytes()
}

// Val returns the current value, or nil when unpositioned.
func (c *Cursor) Val() []byte {
	if !c.Positioned() {
		return nil
	}
	return c.val.Bytes()
}

func (c *Cursor) keyBuf() (*DirectBuffer, error) {
	if err := c.requirePosition(); err != nil {
		return nil, err
	}
	return c.key, nil
}

func (c *Cursor) valBuf() (*DirectBuffer, error) {
	if err := c.requirePosition(); err != nil {
		return nil, err
	}
	return c.val, nil
}

func (c *Cursor) KeyByte(off int) (byte, error) {
	b, err := c.keyBuf()
	if err != nil {
		return 0, err
	}
	return b.GetByte(off)
}

func (c *Cursor) KeyInt32(off int) (int32, error) {
	b, err := c.keyBuf()
	if err != nil {
		return 0, err
	}
	return b.GetInt32(off)
}

func (c *Cursor) KeyInt64(off int) (int64, error) {
	b, err := c.keyBuf()
	if err != nil {
		return 0, err
	}
	return b.GetInt64(off)
}

func (c *Cursor) KeyFloat32(off int) (float32, error) {
	b, err := c.keyBuf()
	if err != nil {
		return 0, err
	}
	return b.GetFloat32(off)
}

func (c *Cursor) KeyFloat64(off int) (float64, error) {
	b, err := c.keyBuf()
	if err != nil {
		return 0, err
	}
	return b.GetFloat64(off)
}

func (c *Cursor) KeyBytes(off, n int) ([]byte, error) {
	b, err := c.keyBuf()
	if err != nil {
		return nil, err
	}
	return b.GetBytes(off, n)
}

func (c *Cursor) KeyUTF8(off int) (string, error) {
	b, err := c.keyBuf()
	if err != nil {
		return "", err
	}
	return b.GetUTF8(off)
}

func (c *Cursor) ValByte(off int) (byte, error) {
	b, err := c.valBuf()
	if err != nil {
		return 0, err
	}
	return b.GetByte(off)
}

func (c *Cursor) ValInt32(off int) (int32, error) {
	b, err := c.valBuf()
	if err != nil {
		return 0, err
	}
	return b.GetInt32(off)
}

func (c *Cursor) ValInt64(off int) (int64, error) {
	b, err := c.valBuf()
	if err != nil {
		return 0, err
	}
	return b.GetInt64(off)
}

func (c *Cursor) ValFloat32(off int) (float32, error) {
	b, err := c.valBuf()
	if err != nil {
		return 0, err
	}
	return b.GetFloat32(off)
}

func (c *Cursor) ValFloat64(off int) (float64, error) {
	b, err := c.valBuf()
	if err != nil {
		return 0, err
	}
	return b.GetFloat64(off)
}

func (c *Cursor) ValBytes(off, n int) ([]byte, error) {
	b, err := c.valBuf()
	if err != nil {
		return nil, err
	}
	return b.GetBytes(off, n)
}

func (c *Cursor) ValUTF8(off int) (string, error) {
	b, err := c.valBuf()
	if err != nil {
		return "", err
	}
	return b.GetUTF8(off)
}

// Close releases the cursor. A cursor that owns its transaction commits it
// (Writer) or aborts it (Reader). Closing twice fails with ErrBadCursor.
func (c *Cursor) Close() error {
	if c.closed {
		return NewError(ErrBadCursor)
	}
	err := c.release()
	c.txn.forget(c)
	if !c.ownsTxn {
		return err
	}
	if c.mode == Writer {
		if cerr := c.txn.Commit(); cerr != nil {
			return cerr
		}
		return err
	}
	c.txn.Abort()
	return err
}

// release frees everything the cursor holds and returns the first error
// from freeing its memory. The transaction calls it for cursors still open
// when it ends.
func (c *Cursor) release() error {
	c.closed = true
	c.positioned = false
	c.ec.Close()

	if c.callerBufs {
		*c.key, *c.val = c.saved[0], c.saved[1]
	} else {
		c.key.point(View{})
		c.val.point(View{})
	}
	var first error
	keep := func(err error) {
		if first == nil {
			first = err
		}
	}
	for _, v := range []*View{c.keyRegion, c.valRegion} {
		if v != nil {
			if err := v.Free(); err != nil {
				keep(err)
			}
		}
	}
	if c.ownStaging {
		if err := c.skey.Free(); err != nil {
			keep(err)
		}
		if err := c.sval.Free(); err != nil {
			keep(err)
		}
	}
	c.err = nil
	return first
}
