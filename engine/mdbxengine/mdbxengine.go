// Package mdbxengine adapts libmdbx (through github.com/erigontech/mdbx-go)
// to the engine contract.
//
// Values returned by Get and cursor operations point straight into the
// memory map and stay valid until the next write in the transaction.
// libmdbx binds transactions to the OS thread that started them, so every
// transaction locks its goroutine to the current thread until it ends.
package mdbxengine

import (
	"errors"
	"os"
	"runtime"
	"syscall"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/Giulio2002/bufdb/engine"
)

// Name is the name the engine registers under.
const Name = "mdbx"

func init() {
	engine.Register(Name, func(opts engine.Options) (engine.Env, error) {
		return Open(opts)
	})
}

// Env wraps an *mdbx.Env.
type Env struct {
	env  *mdbx.Env
	opts engine.Options
}

// Open opens (creating if needed) an MDBX environment in opts.Path.
func Open(opts engine.Options) (*Env, error) {
	if opts.Path == "" {
		return nil, engine.Fail("env_open", engine.EINVAL)
	}

	env, err := mdbx.NewEnv(mdbx.Label("bufdb"))
	if err != nil {
		return nil, wrap("env_create", err)
	}

	mapSize := -1
	if opts.MapSize > 0 {
		mapSize = int(opts.MapSize)
	}
	pageSize := -1
	if opts.PageSize > 0 {
		pageSize = opts.PageSize
	}
	if err := env.SetGeometry(-1, -1, mapSize, -1, -1, pageSize); err != nil {
		env.Close()
		return nil, wrap("env_set_geometry", err)
	}
	if opts.MaxTables > 0 {
		if err := env.SetOption(mdbx.OptMaxDB, uint64(opts.MaxTables)); err != nil {
			env.Close()
			return nil, wrap("env_set_option", err)
		}
	}

	flags := uint(mdbx.Create)
	switch {
	case opts.ReadOnly:
		flags = mdbx.Readonly
	case opts.NoSync:
		flags |= mdbx.SafeNoSync
	}
	if !opts.ReadOnly {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			env.Close()
			return nil, &engine.OpError{Op: "env_open", Err: err}
		}
	}
	if err := env.Open(opts.Path, flags, 0o644); err != nil {
		env.Close()
		return nil, wrap("env_open", err)
	}

	return &Env{env: env, opts: opts}, nil
}

// MDBX returns the underlying environment.
func (e *Env) MDBX() *mdbx.Env { return e.env }

// BeginTxn starts a transaction pinned to the calling OS thread.
func (e *Env) BeginTxn(readOnly bool) (engine.Txn, error) {
	var flags uint
	if readOnly {
		flags = mdbx.Readonly
	}

	runtime.LockOSThread()
	txn, err := e.env.BeginTxn(nil, flags)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, wrap("txn_begin", err)
	}
	return &Txn{txn: txn, readOnly: readOnly}, nil
}

// Close closes the environment.
func (e *Env) Close() error {
	e.env.Close()
	return nil
}

// Txn wraps an *mdbx.Txn.
type Txn struct {
	txn      *mdbx.Txn
	readOnly bool
	done     bool
}

// ReadOnly reports whether the transaction is read-only.
func (t *Txn) ReadOnly() bool { return t.readOnly }

func (t *Txn) live(op string) error {
	if t.done {
		return engine.Fail(op, engine.BadTxn)
	}
	return nil
}

// OpenTable opens a named table; the empty name is the main table.
func (t *Txn) OpenTable(name string, flags uint) (engine.DBI, error) {
	if err := t.live("dbi_open"); err != nil {
		return 0, err
	}
	var mflags uint
	if flags&engine.DupSort != 0 {
		mflags |= mdbx.DupSort
	}
	if flags&engine.Create != 0 {
		mflags |= mdbx.Create
	}

	var (
		dbi mdbx.DBI
		err error
	)
	if name == "" {
		dbi, err = t.txn.OpenRoot(mflags)
	} else {
		dbi, err = t.txn.OpenDBI(name, mflags, nil, nil)
	}
	if err != nil {
		return 0, wrap("dbi_open", err)
	}
	return engine.DBI(dbi), nil
}

// Flags returns the table flags.
func (t *Txn) Flags(dbi engine.DBI) (uint, error) {
	if err := t.live("dbi_flags"); err != nil {
		return 0, err
	}
	f, err := t.txn.Flags(mdbx.DBI(dbi))
	if err != nil {
		return 0, wrap("dbi_flags", err)
	}
	if uint(f)&mdbx.DupSort != 0 {
		return engine.DupSort, nil
	}
	return 0, nil
}

// Get returns the value of key.
func (t *Txn) Get(dbi engine.DBI, key []byte) ([]byte, error) {
	if err := t.live("get"); err != nil {
		return nil, err
	}
	v, err := t.txn.Get(mdbx.DBI(dbi), key)
	return v, wrap("get", err)
}

// Put stores a pair.
func (t *Txn) Put(dbi engine.DBI, key, val []byte, flags uint) error {
	if err := t.live("put"); err != nil {
		return err
	}
	if t.readOnly {
		return engine.Fail("put", engine.EACCES)
	}
	return wrap("put", t.txn.Put(mdbx.DBI(dbi), key, val, putFlags(flags)))
}

// Del deletes key, or the pair (key, val).
func (t *Txn) Del(dbi engine.DBI, key, val []byte) error {
	if err := t.live("del"); err != nil {
		return err
	}
	if t.readOnly {
		return engine.Fail("del", engine.EACCES)
	}
	return wrap("del", t.txn.Del(mdbx.DBI(dbi), key, val))
}

// Drop empties or deletes the table.
func (t *Txn) Drop(dbi engine.DBI, del bool) error {
	if err := t.live("drop"); err != nil {
		return err
	}
	if t.readOnly {
		return engine.Fail("drop", engine.EACCES)
	}
	return wrap("drop", t.txn.Drop(mdbx.DBI(dbi), del))
}

// Stat returns the table statistics.
func (t *Txn) Stat(dbi engine.DBI) (*engine.Stat, error) {
	if err := t.live("dbi_stat"); err != nil {
		return nil, err
	}
	st, err := t.txn.StatDBI(mdbx.DBI(dbi))
	if err != nil {
		return nil, wrap("dbi_stat", err)
	}
	return &engine.Stat{
		PSize:         uint(st.PSize),
		Depth:         uint(st.Depth),
		BranchPages:   uint64(st.BranchPages),
		LeafPages:     uint64(st.LeafPages),
		OverflowPages: uint64(st.OverflowPages),
		Entries:       uint64(st.Entries),
	}, nil
}

// OpenCursor opens a cursor.
func (t *Txn) OpenCursor(dbi engine.DBI) (engine.Cursor, error) {
	if err := t.live("cursor_open"); err != nil {
		return nil, err
	}
	f, err := t.txn.Flags(mdbx.DBI(dbi))
	if err != nil {
		return nil, wrap("cursor_open", err)
	}
	c, err := t.txn.OpenCursor(mdbx.DBI(dbi))
	if err != nil {
		return nil, wrap("cursor_open", err)
	}
	return &Cursor{c: c, readOnly: t.readOnly, dupSort: uint(f)&mdbx.DupSort != 0}, nil
}

// Commit commits the transaction and releases the OS thread.
func (t *Txn) Commit() error {
	if err := t.live("txn_commit"); err != nil {
		return err
	}
	t.done = true
	defer runtime.UnlockOSThread()
	_, err := t.txn.Commit()
	return wrap("txn_commit", err)
}

// Abort aborts the transaction and releases the OS thread.
func (t *Txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	t.txn.Abort()
	runtime.UnlockOSThread()
}

// Cursor wraps an *mdbx.Cursor.
type Cursor struct {
	c        *mdbx.Cursor
	readOnly bool
	dupSort  bool
	closed   bool
	// afterDel is set between Del and the next successful move; libmdbx
	// reports the successor as current then.
	afterDel bool
}

// Get performs a cursor operation.
func (c *Cursor) Get(key, val []byte, op uint) ([]byte, []byte, error) {
	if c.closed {
		return nil, nil, engine.Fail("cursor_get", engine.EINVAL)
	}
	mop, ok := cursorOps[op]
	if !ok {
		return nil, nil, engine.Fail("cursor_get", engine.EINVAL)
	}
	if c.dupSort && !c.afterDel && relative[op] {
		return c.step(mop)
	}
	k, v, err := c.c.Get(key, val, mop)
	if err != nil {
		return nil, nil, wrap("cursor_get", err)
	}
	c.afterDel = false
	return k, v, nil
}

// step runs a relative move on a DUPSORT table. A failed move leaves libmdbx
// at EOF, from where Prev skips the rest of the last key's duplicates, so the
// cursor is put back on the entry it started from.
func (c *Cursor) step(mop uint) ([]byte, []byte, error) {
	curK, curV, curErr := c.c.Get(nil, nil, mdbx.GetCurrent)
	k, v, err := c.c.Get(nil, nil, mop)
	if err == nil {
		return k, v, nil
	}
	if mdbx.IsNotFound(err) && curErr == nil {
		if _, _, aerr := c.c.Get(curK, curV, mdbx.GetBoth); aerr != nil {
			return nil, nil, wrap("cursor_get", aerr)
		}
	}
	return nil, nil, wrap("cursor_get", err)
}

// Put stores a pair at the cursor.
func (c *Cursor) Put(key, val []byte, flags uint) error {
	if c.closed {
		return engine.Fail("cursor_put", engine.EINVAL)
	}
	if c.readOnly {
		return engine.Fail("cursor_put", engine.EACCES)
	}
	return wrap("cursor_put", c.c.Put(key, val, putFlags(flags)))
}

// Del deletes the pair at the cursor.
func (c *Cursor) Del(flags uint) error {
	if c.closed {
		return engine.Fail("cursor_del", engine.EINVAL)
	}
	if c.readOnly {
		return engine.Fail("cursor_del", engine.EACCES)
	}
	if err := c.c.Del(putFlags(flags)); err != nil {
		return wrap("cursor_del", err)
	}
	c.afterDel = true
	return nil
}

// Count returns the number of duplicates of the current key.
func (c *Cursor) Count() (uint64, error) {
	if c.closed {
		return 0, engine.Fail("cursor_count", engine.EINVAL)
	}
	n, err := c.c.Count()
	return uint64(n), wrap("cursor_count", err)
}

// Close closes the cursor. Closing twice is a no-op.
func (c *Cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.c.Close()
}

// relative lists the moves that start from the current position.
var relative = map[uint]bool{
	engine.Next:      true,
	engine.Prev:      true,
	engine.NextDup:   true,
	engine.PrevDup:   true,
	engine.NextNoDup: true,
	engine.PrevNoDup: true,
}

var cursorOps = map[uint]uint{
	engine.First:        mdbx.First,
	engine.FirstDup:     mdbx.FirstDup,
	engine.GetBoth:      mdbx.GetBoth,
	engine.GetBothRange: mdbx.GetBothRange,
	engine.GetCurrent:   mdbx.GetCurrent,
	engine.Last:         mdbx.Last,
	engine.LastDup:      mdbx.LastDup,
	engine.Next:         mdbx.Next,
	engine.NextDup:      mdbx.NextDup,
	engine.NextNoDup:    mdbx.NextNoDup,
	engine.Prev:         mdbx.Prev,
	engine.PrevDup:      mdbx.PrevDup,
	engine.PrevNoDup:    mdbx.PrevNoDup,
	engine.Set:          mdbx.Set,
	engine.SetRange:     mdbx.SetRange,
}

func putFlags(flags uint) uint {
	var f uint
	if flags&engine.NoOverwrite != 0 {
		f |= mdbx.NoOverwrite
	}
	if flags&engine.NoDupData != 0 {
		f |= mdbx.NoDupData
	}
	if flags&engine.Current != 0 {
		f |= mdbx.Current
	}
	if flags&engine.Append != 0 {
		f |= mdbx.Append
	}
	if flags&engine.AppendDup != 0 {
		f |= mdbx.AppendDup
	}
	return f
}

// wrap translates mdbx-go errors into engine errors.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case mdbx.IsNotFound(err):
		return engine.Fail(op, engine.NotFound)
	case mdbx.IsKeyExists(err):
		return engine.Fail(op, engine.KeyExist)
	}
	var opErr *mdbx.OpError
	if errors.As(err, &opErr) {
		err = opErr.Errno
	}
	switch e := err.(type) {
	case mdbx.Errno:
		return engine.Fail(op, engine.Errno(e))
	case syscall.Errno:
		return engine.Fail(op, engine.Errno(e))
	}
	return &engine.OpError{Op: op, Err: err}
}
