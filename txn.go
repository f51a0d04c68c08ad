package bufdb

import (
	"go.uber.org/zap"

	"github.com/Giulio2002/bufdb/engine"
	"github.com/Giulio2002/bufdb/internal/fastmap"
)

// TxnOp is a function that operates on a transaction.
// This is the callback type for View, Update, and RunTxn.
type TxnOp func(txn *Txn) error

// Txn is a transaction. It scopes every cursor opened under it: Commit and
// Abort close the cursors still open, after which they fail with
// ErrBadCursor.
type Txn struct {
	env      *Env
	et       engine.Txn
	readOnly bool
	done     bool

	cursors    fastmap.Map[*Cursor]
	nextCursor uint32
}

// ReadOnly reports whether the transaction rejects writes.
func (txn *Txn) ReadOnly() bool { return txn.readOnly }

// Env returns the environment the transaction belongs to.
func (txn *Txn) Env() *Env { return txn.env }

func (txn *Txn) valid() error {
	if txn.done {
		return NewError(ErrBadTxn)
	}
	return nil
}

func (txn *Txn) track(c *Cursor) {
	txn.nextCursor++
	c.id = txn.nextCursor
	txn.cursors.Set(c.id, c)
}

func (txn *Txn) forget(c *Cursor) {
	txn.cursors.Delete(c.id)
}

// closeCursors releases the cursors left open when the transaction ends.
func (txn *Txn) closeCursors() {
	if n := txn.cursors.Len(); n > 0 {
		txn.env.log.Warn("closing cursors left open by transaction",
			zap.Int("cursors", n), zap.Bool("readOnly", txn.readOnly))
	}
	txn.cursors.ForEach(func(id uint32, c *Cursor) {
		if err := c.release(); err != nil {
			txn.env.log.Warn("cursor release failed", zap.Uint32("cursor", id), zap.Error(err))
		}
	})
	txn.cursors.Clear()
}

// Commit closes open cursors and commits the transaction.
func (txn *Txn) Commit() error {
	if err := txn.valid(); err != nil {
		return err
	}
	txn.closeCursors()
	txn.done = true
	if err := txn.et.Commit(); err != nil {
		return fromEngine(err)
	}
	txn.env.log.Debug("transaction committed", zap.Bool("readOnly", txn.readOnly))
	return nil
}

// Abort closes open cursors and discards the transaction. Aborting a
// finished transaction is a no-op.
func (txn *Txn) Abort() {
	if txn.done {
		return
	}
	txn.closeCursors()
	txn.done = true
	txn.et.Abort()
	txn.env.log.Debug("transaction aborted", zap.Bool("readOnly", txn.readOnly))
}

func (txn *Txn) table(t *Table) error {
	if err := txn.valid(); err != nil {
		return err
	}
	if t == nil || t.env != txn.env {
		return NewError(ErrInvalidArgument)
	}
	return t.check()
}

// Get returns the value stored under key, or nil when the key is absent.
// For DUPSORT tables it returns the first duplicate. The slice points into
// engine memory and is valid until the next write or the end of the
// transaction.
func (txn *Txn) Get(t *Table, key []byte) ([]byte, error) {
	if err := txn.table(t); err != nil {
		return nil, err
	}
	v, err := txn.et.Get(t.dbi, key)
	if err != nil {
		if engine.IsNotFound(err) {
			return nil, nil
		}
		return nil, fromEngine(err)
	}
	return v, nil
}

// Put stores a key/value pair with engine put flags.
func (txn *Txn) Put(t *Table, key, val []byte, flags uint) error {
	if err := txn.table(t); err != nil {
		return err
	}
	if txn.readOnly {
		return NewError(ErrPermissionDenied)
	}
	return fromEngine(txn.et.Put(t.dbi, key, val, flags))
}

// Del deletes key. For DUPSORT tables a non-nil val deletes only that pair.
func (txn *Txn) Del(t *Table, key, val []byte) error {
	if err := txn.table(t); err != nil {
		return err
	}
	if txn.readOnly {
		return NewError(ErrPermissionDenied)
	}
	return fromEngine(txn.et.Del(t.dbi, key, val))
}
