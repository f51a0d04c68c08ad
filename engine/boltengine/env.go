// Package boltengine adapts go.etcd.io/bbolt to the engine contract.
//
// Each table is a top-level bucket. DUPSORT tables map every key to a nested
// bucket whose keys are the duplicate values (stored with empty values), so
// bolt's own key order yields MDBX's (key, value) order. Table flags are kept
// in a metadata bucket so they survive reopening.
package boltengine

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Giulio2002/bufdb/engine"
)

// Name is the name the engine registers under.
const Name = "bolt"

// DataFileName is the bolt file inside the environment directory.
const DataFileName = "bufdb.bolt"

var (
	metaBucket = []byte("__bufdb_tables")
	mainBucket = []byte("__main")
)

func init() {
	engine.Register(Name, func(opts engine.Options) (engine.Env, error) {
		return Open(opts)
	})
}

func bucketName(name string) []byte {
	if name == "" {
		return mainBucket
	}
	return []byte(name)
}

type tableInfo struct {
	name  []byte
	flags uint
}

// Env is a bolt-backed environment.
type Env struct {
	db   *bolt.DB
	opts engine.Options

	mu      sync.RWMutex
	names   map[string]engine.DBI
	tables  map[engine.DBI]tableInfo
	nextDBI engine.DBI
}

// Open opens (creating if needed) the bolt file in opts.Path.
func Open(opts engine.Options) (*Env, error) {
	if opts.Path == "" {
		return nil, engine.Fail("env_open", engine.EINVAL)
	}
	if !opts.ReadOnly {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, &engine.OpError{Op: "env_open", Err: err}
		}
	}

	bopts := &bolt.Options{
		Timeout:  time.Second,
		NoSync:   opts.NoSync,
		ReadOnly: opts.ReadOnly,
		PageSize: opts.PageSize,
	}
	if opts.MapSize > 0 {
		bopts.InitialMmapSize = int(opts.MapSize)
	}

	db, err := bolt.Open(filepath.Join(opts.Path, DataFileName), 0o644, bopts)
	if err != nil {
		return nil, &engine.OpError{Op: "env_open", Err: err}
	}

	if !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(metaBucket)
			return err
		})
		if err != nil {
			db.Close()
			return nil, &engine.OpError{Op: "env_open", Err: err}
		}
	}

	return &Env{
		db:      db,
		opts:    opts,
		names:   make(map[string]engine.DBI),
		tables:  make(map[engine.DBI]tableInfo),
		nextDBI: 2,
	}, nil
}

// DB returns the underlying bolt database.
func (e *Env) DB() *bolt.DB { return e.db }

// BeginTxn starts a bolt transaction.
func (e *Env) BeginTxn(readOnly bool) (engine.Txn, error) {
	tx, err := e.db.Begin(!readOnly)
	if err != nil {
		if err == bolt.ErrDatabaseReadOnly {
			return nil, engine.Fail("txn_begin", engine.EACCES)
		}
		return nil, &engine.OpError{Op: "txn_begin", Err: err}
	}
	return &Txn{env: e, tx: tx}, nil
}

// Close closes the bolt database.
func (e *Env) Close() error {
	return e.db.Close()
}

// handle returns the DBI registered for name, assigning one if needed.
func (e *Env) handle(name string, flags uint) engine.DBI {
	e.mu.Lock()
	defer e.mu.Unlock()
	if dbi, ok := e.names[name]; ok {
		e.tables[dbi] = tableInfo{name: bucketName(name), flags: flags}
		return dbi
	}
	dbi := e.nextDBI
	e.nextDBI++
	e.names[name] = dbi
	e.tables[dbi] = tableInfo{name: bucketName(name), flags: flags}
	return dbi
}

func (e *Env) info(dbi engine.DBI) (tableInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ti, ok := e.tables[dbi]
	return ti, ok
}
