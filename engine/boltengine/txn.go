package boltengine

import (
	"bytes"
	"errors"

	bolt "go.etcd.io/bbolt"

	"github.com/Giulio2002/bufdb/engine"
	"github.com/Giulio2002/bufdb/internal/pairnav"
)

// Txn wraps a bolt transaction.
type Txn struct {
	env  *Env
	tx   *bolt.Tx
	done bool
}

// ReadOnly reports whether the transaction is read-only.
func (txn *Txn) ReadOnly() bool { return !txn.tx.Writable() }

// Tx returns the underlying bolt transaction.
func (txn *Txn) Tx() *bolt.Tx { return txn.tx }

type table struct {
	b       *bolt.Bucket
	dupSort bool
}

func (t table) store() pairnav.Store {
	if t.dupSort {
		return dupStore{t.b}
	}
	return plainStore{t.b}
}

func (txn *Txn) table(op string, dbi engine.DBI) (table, error) {
	if txn.done {
		return table{}, engine.Fail(op, engine.BadTxn)
	}
	ti, ok := txn.env.info(dbi)
	if !ok {
		return table{}, engine.Fail(op, engine.BadDBI)
	}
	b := txn.tx.Bucket(ti.name)
	if b == nil {
		return table{}, engine.Fail(op, engine.BadDBI)
	}
	return table{b: b, dupSort: ti.flags&engine.DupSort != 0}, nil
}

func (txn *Txn) writable(op string, dbi engine.DBI) (table, error) {
	t, err := txn.table(op, dbi)
	if err != nil {
		return t, err
	}
	if !txn.tx.Writable() {
		return t, engine.Fail(op, engine.EACCES)
	}
	return t, nil
}

// OpenTable opens or creates the bucket for name.
func (txn *Txn) OpenTable(name string, flags uint) (engine.DBI, error) {
	if txn.done {
		return 0, engine.Fail("dbi_open", engine.BadTxn)
	}
	bname := bucketName(name)
	meta := txn.tx.Bucket(metaBucket)

	if b := txn.tx.Bucket(bname); b != nil {
		stored := uint(0)
		if f := metaFlags(meta, bname); len(f) > 0 && f[0] == 1 {
			stored = engine.DupSort
		}
		if flags&engine.Create != 0 && flags&engine.DupSort != stored {
			return 0, engine.Fail("dbi_open", engine.Incompatible)
		}
		return txn.env.handle(name, stored), nil
	}

	if flags&engine.Create == 0 {
		return 0, engine.Fail("dbi_open", engine.NotFound)
	}
	if !txn.tx.Writable() {
		return 0, engine.Fail("dbi_open", engine.EACCES)
	}
	if _, err := txn.tx.CreateBucket(bname); err != nil {
		return 0, &engine.OpError{Op: "dbi_open", Err: err}
	}
	f := []byte{0}
	if flags&engine.DupSort != 0 {
		f[0] = 1
	}
	if err := meta.Put(bname, f); err != nil {
		return 0, &engine.OpError{Op: "dbi_open", Err: err}
	}
	return txn.env.handle(name, flags&engine.DupSort), nil
}

// Flags returns the table flags.
func (txn *Txn) Flags(dbi engine.DBI) (uint, error) {
	t, err := txn.table("dbi_flags", dbi)
	if err != nil {
		return 0, err
	}
	if t.dupSort {
		return engine.DupSort, nil
	}
	return 0, nil
}

// Get returns the value of key (the first duplicate for DUPSORT tables).
func (txn *Txn) Get(dbi engine.DBI, key []byte) ([]byte, error) {
	t, err := txn.table("get", dbi)
	if err != nil {
		return nil, err
	}
	k, v, ok := t.store().Ceil(key, nil)
	if !ok || !bytes.Equal(k, key) {
		return nil, engine.Fail("get", engine.NotFound)
	}
	return v, nil
}

// Put stores a pair.
func (txn *Txn) Put(dbi engine.DBI, key, val []byte, flags uint) error {
	t, err := txn.writable("put", dbi)
	if err != nil {
		return err
	}
	return put(t, key, val, flags)
}

func put(t table, key, val []byte, flags uint) error {
	if len(key) == 0 || len(key) > bolt.MaxKeySize {
		return engine.Fail("put", engine.BadValSize)
	}
	s := t.store()

	if flags&(engine.Append|engine.AppendDup) != 0 {
		if mk, mv, ok := s.Max(); ok {
			c := bytes.Compare(key, mk)
			if c < 0 || (c == 0 && (!t.dupSort || bytes.Compare(val, mv) <= 0)) {
				return engine.Fail("put", engine.KeyMismatch)
			}
		}
		// Sequential inserts fill pages completely.
		t.b.FillPercent = 1.0
	}

	if !t.dupSort {
		if flags&engine.NoOverwrite != 0 && exists(s, key) {
			return engine.Fail("put", engine.KeyExist)
		}
		// bolt keeps the slices until commit.
		if err := t.b.Put(clone(key), clone(val)); err != nil {
			return boltErr("put", err)
		}
		return nil
	}

	if len(val) == 0 || len(val) > bolt.MaxKeySize {
		return engine.Fail("put", engine.BadValSize)
	}
	sub := t.b.Bucket(key)
	if sub != nil && flags&engine.NoOverwrite != 0 {
		return engine.Fail("put", engine.KeyExist)
	}
	if sub == nil {
		var err error
		if sub, err = t.b.CreateBucket(key); err != nil {
			return boltErr("put", err)
		}
	}
	if flags&engine.NoDupData != 0 && sub.Get(val) != nil {
		return engine.Fail("put", engine.KeyExist)
	}
	if flags&(engine.Append|engine.AppendDup) != 0 {
		sub.FillPercent = 1.0
	}
	if err := sub.Put(clone(val), []byte{}); err != nil {
		return boltErr("put", err)
	}
	return nil
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func metaFlags(meta *bolt.Bucket, name []byte) []byte {
	if meta == nil {
		return nil
	}
	return meta.Get(name)
}

func exists(s pairnav.Store, key []byte) bool {
	k, _, ok := s.Ceil(key, nil)
	return ok && bytes.Equal(k, key)
}

// Del removes key, or the single pair (key, val) of a DUPSORT table.
func (txn *Txn) Del(dbi engine.DBI, key, val []byte) error {
	t, err := txn.writable("del", dbi)
	if err != nil {
		return err
	}
	return del(t, key, val)
}

func del(t table, key, val []byte) error {
	if !t.dupSort {
		if !exists(t.store(), key) {
			return engine.Fail("del", engine.NotFound)
		}
		return boltErr("del", t.b.Delete(key))
	}

	sub := t.b.Bucket(key)
	if sub == nil {
		return engine.Fail("del", engine.NotFound)
	}
	if val == nil {
		return boltErr("del", t.b.DeleteBucket(key))
	}
	if sub.Get(val) == nil {
		return engine.Fail("del", engine.NotFound)
	}
	if err := sub.Delete(val); err != nil {
		return boltErr("del", err)
	}
	// A key without duplicates does not exist.
	if k, _ := sub.Cursor().First(); k == nil {
		return boltErr("del", t.b.DeleteBucket(key))
	}
	return nil
}

// Drop empties the bucket, or deletes it when del is set.
func (txn *Txn) Drop(dbi engine.DBI, del bool) error {
	if _, err := txn.writable("drop", dbi); err != nil {
		return err
	}
	ti, _ := txn.env.info(dbi)
	if err := txn.tx.DeleteBucket(ti.name); err != nil {
		return boltErr("drop", err)
	}
	if del {
		return boltErr("drop", txn.tx.Bucket(metaBucket).Delete(ti.name))
	}
	_, err := txn.tx.CreateBucket(ti.name)
	return boltErr("drop", err)
}

// Stat maps bolt bucket statistics onto the engine layout.
func (txn *Txn) Stat(dbi engine.DBI) (*engine.Stat, error) {
	t, err := txn.table("dbi_stat", dbi)
	if err != nil {
		return nil, err
	}
	bs := t.b.Stats()

	// Page statistics come from committed pages; entries are counted through
	// cursors so they include this transaction's own writes.
	entries := countPairs(t)

	leaves := uint64(bs.LeafPageN)
	if leaves == 0 && entries > 0 {
		// Small buckets are stored inline in their parent page.
		leaves = 1
	}
	depth := uint(bs.Depth)
	if entries == 0 {
		depth = 0
		leaves = 0
	}

	return &engine.Stat{
		PSize:         uint(txn.tx.DB().Info().PageSize),
		Depth:         depth,
		BranchPages:   uint64(bs.BranchPageN),
		LeafPages:     leaves,
		OverflowPages: uint64(bs.LeafOverflowN + bs.BranchOverflowN),
		Entries:       entries,
	}, nil
}

func countPairs(t table) uint64 {
	var n uint64
	c := t.b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		if !t.dupSort {
			n++
			continue
		}
		sc := t.b.Bucket(k).Cursor()
		for dv, _ := sc.First(); dv != nil; dv, _ = sc.Next() {
			n++
		}
	}
	return n
}

// OpenCursor opens a cursor on the table.
func (txn *Txn) OpenCursor(dbi engine.DBI) (engine.Cursor, error) {
	t, err := txn.table("cursor_open", dbi)
	if err != nil {
		return nil, err
	}
	return &Cursor{txn: txn, dbi: dbi, nav: pairnav.New(t.dupSort)}, nil
}

// Commit commits the bolt transaction; read-only transactions are rolled
// back, which is how bolt releases them.
func (txn *Txn) Commit() error {
	if txn.done {
		return engine.Fail("txn_commit", engine.BadTxn)
	}
	txn.done = true
	if !txn.tx.Writable() {
		return boltErr("txn_commit", txn.tx.Rollback())
	}
	return boltErr("txn_commit", txn.tx.Commit())
}

// Abort rolls the transaction back.
func (txn *Txn) Abort() {
	if txn.done {
		return
	}
	txn.done = true
	_ = txn.tx.Rollback()
}

func boltErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bolt.ErrTxNotWritable), errors.Is(err, bolt.ErrDatabaseReadOnly):
		return engine.Fail(op, engine.EACCES)
	case errors.Is(err, bolt.ErrKeyRequired), errors.Is(err, bolt.ErrKeyTooLarge), errors.Is(err, bolt.ErrValueTooLarge):
		return engine.Fail(op, engine.BadValSize)
	case errors.Is(err, bolt.ErrTxClosed):
		return engine.Fail(op, engine.BadTxn)
	case errors.Is(err, bolt.ErrBucketNotFound):
		return engine.Fail(op, engine.BadDBI)
	case errors.Is(err, bolt.ErrIncompatibleValue):
		return engine.Fail(op, engine.Incompatible)
	}
	return &engine.OpError{Op: op, Err: err}
}
