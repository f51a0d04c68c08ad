// Package memengine is an in-memory engine built on copy-on-write B-trees.
//
// Each table is a github.com/google/btree tree of key/value pairs. A write
// transaction works on clones of the committed trees and publishes them on
// Commit, so readers keep a stable snapshot for their whole lifetime without
// locking. Nothing is persisted; Options.Path is ignored.
package memengine

import (
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/Giulio2002/bufdb/engine"
	"github.com/Giulio2002/bufdb/internal/pairnav"
)

// Name is the name the engine registers under.
const Name = "memory"

const (
	btreeDegree     = 32
	defaultPageSize = 4096
)

func init() {
	engine.Register(Name, func(opts engine.Options) (engine.Env, error) {
		return Open(opts)
	})
}

type item struct {
	key, val []byte
}

func less(a, b item) bool {
	return pairnav.Compare(a.key, a.val, b.key, b.val) < 0
}

type table struct {
	name  string
	flags uint
	tree  *btree.BTreeG[item]
}

func (t *table) dupSort() bool {
	return t.flags&engine.DupSort != 0
}

// state is the set of tables visible to a transaction. Committed states are
// never mutated.
type state struct {
	tables map[engine.DBI]*table
	names  map[string]engine.DBI
}

func (s *state) clone() *state {
	n := &state{
		tables: make(map[engine.DBI]*table, len(s.tables)),
		names:  make(map[string]engine.DBI, len(s.names)),
	}
	for dbi, t := range s.tables {
		n.tables[dbi] = &table{name: t.name, flags: t.flags, tree: t.tree.Clone()}
	}
	for name, dbi := range s.names {
		n.names[name] = dbi
	}
	return n
}

// Env is an in-memory environment.
type Env struct {
	opts engine.Options

	writer sync.Mutex // held by the active write transaction

	mu      sync.RWMutex
	current *state

	nextDBI atomic.Uint32
	closed  atomic.Bool
}

// Open creates an empty environment.
func Open(opts engine.Options) (*Env, error) {
	if opts.PageSize == 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.PageSize < 256 || opts.PageSize > 65536 || opts.PageSize&(opts.PageSize-1) != 0 {
		return nil, engine.Fail("env_open", engine.EINVAL)
	}
	e := &Env{
		opts: opts,
		current: &state{
			tables: make(map[engine.DBI]*table),
			names:  make(map[string]engine.DBI),
		},
	}
	// DBI 0 and 1 are reserved, matching MDBX (GC and main).
	e.nextDBI.Store(2)
	return e, nil
}

// BeginTxn starts a transaction. Write transactions are serialized.
func (e *Env) BeginTxn(readOnly bool) (engine.Txn, error) {
	if e.closed.Load() {
		return nil, engine.Fail("txn_begin", engine.BadTxn)
	}
	if !readOnly && e.opts.ReadOnly {
		return nil, engine.Fail("txn_begin", engine.EACCES)
	}

	if readOnly {
		e.mu.RLock()
		st := e.current
		e.mu.RUnlock()
		return &Txn{env: e, st: st, readOnly: true}, nil
	}

	e.writer.Lock()
	e.mu.RLock()
	st := e.current.clone()
	e.mu.RUnlock()
	return &Txn{env: e, st: st}, nil
}

// Close releases the environment.
func (e *Env) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.mu.Lock()
	e.current = &state{}
	e.mu.Unlock()
	return nil
}
