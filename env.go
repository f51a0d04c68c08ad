package bufdb

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Giulio2002/bufdb/engine"
	_ "github.com/Giulio2002/bufdb/engine/boltengine" // register "bolt"
	_ "github.com/Giulio2002/bufdb/engine/mdbxengine" // register "mdbx"
	_ "github.com/Giulio2002/bufdb/engine/memengine"  // register "memory"
	"github.com/Giulio2002/bufdb/internal/fastmap"
)

// Env is an open storage environment.
type Env struct {
	cfg Config
	ee  engine.Env
	log *zap.Logger

	mu     sync.Mutex
	tables fastmap.Map[*Table] // DBI -> handle
	closed bool
}

// Open opens an environment as described by cfg. Zero fields take their
// defaults.
func Open(cfg Config) (*Env, error) {
	cfg.applyDefaults()
	log := cfg.Logger
	switch {
	case log != nil:
	case cfg.LogLevel == "":
		log = zap.NewNop()
	default:
		var err error
		if log, err = NewLogger(cfg.LogLevel); err != nil {
			return nil, WrapError(ErrInvalidArgument, err)
		}
	}

	ee, err := engine.Open(cfg.Engine, engine.Options{
		Path:      cfg.Path,
		MapSize:   cfg.MapSize,
		MaxTables: cfg.MaxTables,
		PageSize:  cfg.PageSize,
		NoSync:    cfg.NoSync,
		ReadOnly:  cfg.ReadOnly,
	})
	if err != nil {
		return nil, fromEngine(err)
	}

	log.Info("environment opened",
		zap.String("engine", cfg.Engine),
		zap.String("path", cfg.Path),
		zap.Bool("readOnly", cfg.ReadOnly))
	return &Env{cfg: cfg, ee: ee, log: log}, nil
}

// Config returns the configuration the environment was opened with.
func (e *Env) Config() Config { return e.cfg }

// Logger returns the environment logger.
func (e *Env) Logger() *zap.Logger { return e.log }

// BeginTxn starts a transaction. Only one write transaction runs at a time;
// BeginTxn(false) waits for the previous writer.
func (e *Env) BeginTxn(readOnly bool) (*Txn, error) {
	if e.closed {
		return nil, NewError(ErrBadTxn)
	}
	if !readOnly && e.cfg.ReadOnly {
		return nil, NewError(ErrPermissionDenied)
	}
	et, err := e.ee.BeginTxn(readOnly)
	if err != nil {
		return nil, fromEngine(err)
	}
	return &Txn{env: e, et: et, readOnly: readOnly}, nil
}

// View executes a read-only transaction.
// The transaction is automatically committed when fn returns nil,
// or aborted when fn returns an error.
func (e *Env) View(fn TxnOp) error {
	return e.RunTxn(true, fn)
}

// Update executes a read-write transaction.
// The transaction is automatically committed when fn returns nil,
// or aborted when fn returns an error.
func (e *Env) Update(fn TxnOp) error {
	return e.RunTxn(false, fn)
}

// RunTxn runs fn in a new transaction.
func (e *Env) RunTxn(readOnly bool, fn TxnOp) error {
	txn, err := e.BeginTxn(readOnly)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		txn.Abort()
		return err
	}
	return txn.Commit()
}

// OpenTable opens a table, creating it unless the environment is read-only.
// An empty name opens the main table. Opening an existing table with a
// different DupSort flag fails with ErrIncompatible.
func (e *Env) OpenTable(name string, flags uint) (*Table, error) {
	if e.closed {
		return nil, NewError(ErrBadTxn)
	}
	readOnly := e.cfg.ReadOnly
	if !readOnly {
		flags |= engine.Create
	}

	var t *Table
	err := e.RunTxn(readOnly, func(txn *Txn) error {
		dbi, err := txn.et.OpenTable(name, flags)
		if err != nil {
			return fromEngine(err)
		}
		got, err := txn.et.Flags(dbi)
		if err != nil {
			return fromEngine(err)
		}
		t = &Table{
			env:     e,
			name:    name,
			dbi:     dbi,
			flags:   got &^ engine.Create,
			dupSort: got&engine.DupSort != 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.tables.Get(uint32(t.dbi)); ok {
		return cur, nil
	}
	e.tables.Set(uint32(t.dbi), t)
	e.log.Debug("table opened", zap.String("table", name), zap.Bool("dupSort", t.dupSort))
	return t, nil
}

func (e *Env) forgetTable(t *Table) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t.dropped = true
	e.tables.Delete(uint32(t.dbi))
}

// Tables returns the sorted names of the open table handles.
func (e *Env) Tables() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, e.tables.Len())
	e.tables.ForEach(func(_ uint32, t *Table) {
		names = append(names, t.name)
	})
	sort.Strings(names)
	return names
}

// Close closes the environment. Every transaction must be finished.
func (e *Env) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.mu.Lock()
	e.tables.Clear()
	e.mu.Unlock()

	err := e.ee.Close()
	e.log.Info("environment closed", zap.String("engine", e.cfg.Engine))
	return fromEngine(err)
}
