package memengine

import (
	"bytes"

	"github.com/google/btree"

	"github.com/Giulio2002/bufdb/engine"
	"github.com/Giulio2002/bufdb/internal/pairnav"
)

// Txn is a memory engine transaction.
type Txn struct {
	env      *Env
	st       *state
	readOnly bool
	done     bool
}

// ReadOnly reports whether the transaction is read-only.
func (txn *Txn) ReadOnly() bool { return txn.readOnly }

func (txn *Txn) table(op string, dbi engine.DBI) (*table, error) {
	if txn.done {
		return nil, engine.Fail(op, engine.BadTxn)
	}
	t, ok := txn.st.tables[dbi]
	if !ok {
		return nil, engine.Fail(op, engine.BadDBI)
	}
	return t, nil
}

func (txn *Txn) writable(op string, dbi engine.DBI) (*table, error) {
	t, err := txn.table(op, dbi)
	if err != nil {
		return nil, err
	}
	if txn.readOnly {
		return nil, engine.Fail(op, engine.EACCES)
	}
	return t, nil
}

// OpenTable opens or creates a named table.
func (txn *Txn) OpenTable(name string, flags uint) (engine.DBI, error) {
	if txn.done {
		return 0, engine.Fail("dbi_open", engine.BadTxn)
	}
	if dbi, ok := txn.st.names[name]; ok {
		t := txn.st.tables[dbi]
		if flags&engine.DupSort != t.flags&engine.DupSort && flags&engine.Create != 0 {
			return 0, engine.Fail("dbi_open", engine.Incompatible)
		}
		return dbi, nil
	}
	if flags&engine.Create == 0 {
		return 0, engine.Fail("dbi_open", engine.NotFound)
	}
	if txn.readOnly {
		return 0, engine.Fail("dbi_open", engine.EACCES)
	}
	if limit := txn.env.opts.MaxTables; limit > 0 && len(txn.st.tables) >= limit {
		return 0, engine.Fail("dbi_open", engine.Problem)
	}

	dbi := engine.DBI(txn.env.nextDBI.Add(1) - 1)
	txn.st.tables[dbi] = &table{
		name:  name,
		flags: flags &^ engine.Create,
		tree:  btree.NewG[item](btreeDegree, less),
	}
	txn.st.names[name] = dbi
	return dbi, nil
}

// Flags returns the flags of the table.
func (txn *Txn) Flags(dbi engine.DBI) (uint, error) {
	t, err := txn.table("dbi_flags", dbi)
	if err != nil {
		return 0, err
	}
	return t.flags, nil
}

// Get returns the value of key (the first duplicate for DUPSORT tables).
func (txn *Txn) Get(dbi engine.DBI, key []byte) ([]byte, error) {
	t, err := txn.table("get", dbi)
	if err != nil {
		return nil, err
	}
	k, v, ok := treeStore{t.tree}.Ceil(key, nil)
	if !ok || !bytes.Equal(k, key) {
		return nil, engine.Fail("get", engine.NotFound)
	}
	return v, nil
}

// Put stores a key/value pair.
func (txn *Txn) Put(dbi engine.DBI, key, val []byte, flags uint) error {
	t, err := txn.writable("put", dbi)
	if err != nil {
		return err
	}
	return put(t, key, val, flags)
}

func put(t *table, key, val []byte, flags uint) error {
	if len(key) == 0 {
		return engine.Fail("put", engine.BadValSize)
	}
	s := treeStore{t.tree}
	ek, ev, found := s.Ceil(key, nil)
	exists := found && bytes.Equal(ek, key)

	if flags&engine.NoOverwrite != 0 && exists {
		return engine.Fail("put", engine.KeyExist)
	}

	if flags&(engine.Append|engine.AppendDup) != 0 {
		if mk, mv, ok := s.Max(); ok {
			c := bytes.Compare(key, mk)
			switch {
			case c < 0:
				return engine.Fail("put", engine.KeyMismatch)
			case c == 0 && (!t.dupSort() || bytes.Compare(val, mv) <= 0):
				return engine.Fail("put", engine.KeyMismatch)
			}
		}
	}

	it := item{key: clone(key), val: clone(val)}
	if !t.dupSort() {
		if exists {
			t.tree.Delete(item{key: ek, val: ev})
		}
		t.tree.ReplaceOrInsert(it)
		return nil
	}

	if _, had := t.tree.ReplaceOrInsert(it); had && flags&engine.NoDupData != 0 {
		return engine.Fail("put", engine.KeyExist)
	}
	return nil
}

// Del removes key, or the single pair (key, val) of a DUPSORT table.
func (txn *Txn) Del(dbi engine.DBI, key, val []byte) error {
	t, err := txn.writable("del", dbi)
	if err != nil {
		return err
	}

	if t.dupSort() && val != nil {
		if _, ok := t.tree.Delete(item{key: key, val: val}); !ok {
			return engine.Fail("del", engine.NotFound)
		}
		return nil
	}

	var doomed []item
	t.tree.AscendRange(item{key: key}, item{key: pairnav.Succ(key)}, func(it item) bool {
		doomed = append(doomed, it)
		return true
	})
	if len(doomed) == 0 {
		return engine.Fail("del", engine.NotFound)
	}
	for _, it := range doomed {
		t.tree.Delete(it)
	}
	return nil
}

// Drop empties the table, or deletes it when del is set.
func (txn *Txn) Drop(dbi engine.DBI, del bool) error {
	t, err := txn.writable("drop", dbi)
	if err != nil {
		return err
	}
	if del {
		delete(txn.st.tables, dbi)
		delete(txn.st.names, t.name)
		return nil
	}
	t.tree = btree.NewG[item](btreeDegree, less)
	return nil
}

// Stat returns synthetic page statistics for the table.
func (txn *Txn) Stat(dbi engine.DBI) (*engine.Stat, error) {
	t, err := txn.table("dbi_stat", dbi)
	if err != nil {
		return nil, err
	}
	return layout(t.tree, txn.env.opts.PageSize), nil
}

// OpenCursor opens a cursor on the table.
func (txn *Txn) OpenCursor(dbi engine.DBI) (engine.Cursor, error) {
	t, err := txn.table("cursor_open", dbi)
	if err != nil {
		return nil, err
	}
	return &Cursor{txn: txn, dbi: dbi, nav: pairnav.New(t.dupSort())}, nil
}

// Commit publishes the transaction's tables.
func (txn *Txn) Commit() error {
	if txn.done {
		return engine.Fail("txn_commit", engine.BadTxn)
	}
	txn.done = true
	if txn.readOnly {
		return nil
	}
	txn.env.mu.Lock()
	txn.env.current = txn.st
	txn.env.mu.Unlock()
	txn.env.writer.Unlock()
	return nil
}

// Abort discards the transaction. Aborting a finished transaction is a no-op.
func (txn *Txn) Abort() {
	if txn.done {
		return
	}
	txn.done = true
	if !txn.readOnly {
		txn.env.writer.Unlock()
	}
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
