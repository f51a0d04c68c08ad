package bufdb

import (
	"go.uber.org/zap"

	"github.com/Giulio2002/bufdb/engine"
)

// Stat is a snapshot of table statistics, recomputed on every call.
type Stat struct {
	Entries       uint64 // Number of key/value pairs
	PageSize      uint   // Page size in bytes
	Depth         uint   // B-tree depth
	OverflowPages uint64 // Number of overflow pages
	LeafPages     uint64 // Number of leaf pages
	BranchPages   uint64 // Number of internal pages
}

// Table is a handle to a named table of an environment.
type Table struct {
	env     *Env
	name    string
	dbi     engine.DBI
	flags   uint
	dupSort bool
	dropped bool
}

// Name returns the table name. The main table has an empty name.
func (t *Table) Name() string { return t.name }

// Flags returns the flags the table was created with.
func (t *Table) Flags() uint { return t.flags }

// DupSort reports whether the table holds multiple sorted values per key.
func (t *Table) DupSort() bool { return t.dupSort }

func (t *Table) check() error {
	if t.dropped {
		return NewError(ErrBadDBI)
	}
	if t.env.closed {
		return NewError(ErrBadTxn)
	}
	return nil
}

// Get returns a copy of the value stored under key, or nil when the key is
// absent.
func (t *Table) Get(key []byte) ([]byte, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	var out []byte
	err := t.env.View(func(txn *Txn) error {
		v, err := txn.Get(t, key)
		if v != nil {
			out = append([]byte{}, v...)
		}
		return err
	})
	return out, err
}

// Put stores key/val in its own write transaction, replacing the value of
// an existing key (adding a duplicate for DUPSORT tables).
func (t *Table) Put(key, val []byte) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.env.Update(func(txn *Txn) error {
		return txn.Put(t, key, val, engine.Upsert)
	})
}

// Delete removes key and all its values. A missing key is ErrNotFound.
func (t *Table) Delete(key []byte) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.env.Update(func(txn *Txn) error {
		return txn.Del(t, key, nil)
	})
}

// DeleteBuffer removes the key held by the whole of b.
func (t *Table) DeleteBuffer(b *DirectBuffer) error {
	if b == nil {
		return NewError(ErrInvalidArgument)
	}
	return t.Delete(b.Bytes())
}

// Drop deletes every entry. With keepHandle false it also deletes the table
// itself, and every later call on the handle fails with ErrBadDBI.
func (t *Table) Drop(keepHandle bool) error {
	if err := t.check(); err != nil {
		return err
	}
	err := t.env.Update(func(txn *Txn) error {
		if txn.readOnly {
			return NewError(ErrPermissionDenied)
		}
		return fromEngine(txn.et.Drop(t.dbi, !keepHandle))
	})
	if err != nil {
		return err
	}
	t.env.log.Debug("table dropped", zap.String("table", t.name), zap.Bool("keepHandle", keepHandle))
	if !keepHandle {
		t.env.forgetTable(t)
	}
	return nil
}

// Stat returns the table statistics.
func (t *Table) Stat() (Stat, error) {
	if err := t.check(); err != nil {
		return Stat{}, err
	}
	var st Stat
	err := t.env.View(func(txn *Txn) error {
		es, err := txn.et.Stat(t.dbi)
		if err != nil {
			return fromEngine(err)
		}
		st = Stat{
			Entries:       es.Entries,
			PageSize:      es.PSize,
			Depth:         es.Depth,
			OverflowPages: es.OverflowPages,
			LeafPages:     es.LeafPages,
			BranchPages:   es.BranchPages,
		}
		return nil
	})
	return st, err
}

// OpenCursor opens a cursor on the table under txn. A Writer cursor needs a
// write transaction.
func (t *Table) OpenCursor(txn *Txn, mode Mode, opts ...CursorOption) (*Cursor, error) {
	if txn == nil {
		return nil, NewError(ErrInvalidArgument)
	}
	if err := txn.table(t); err != nil {
		return nil, err
	}
	return t.newCursor(txn, mode, opts)
}

// BufferCursor opens a Reader cursor in a private read transaction that
// Close aborts.
func (t *Table) BufferCursor(opts ...CursorOption) (*Cursor, error) {
	return t.ownedCursor(Reader, opts)
}

// BufferCursorWriter opens a Writer cursor in a private write transaction
// that Close commits.
func (t *Table) BufferCursorWriter(opts ...CursorOption) (*Cursor, error) {
	return t.ownedCursor(Writer, opts)
}

func (t *Table) ownedCursor(mode Mode, opts []CursorOption) (*Cursor, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	txn, err := t.env.BeginTxn(mode == Reader)
	if err != nil {
		return nil, err
	}
	c, err := t.newCursor(txn, mode, opts)
	if err != nil {
		txn.Abort()
		return nil, err
	}
	c.ownsTxn = true
	return c, nil
}
