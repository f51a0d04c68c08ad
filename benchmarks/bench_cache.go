// Package benchmarks compares typed bufdb cursors with the raw iterators of
// the stores they run on.
package benchmarks

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"

	"github.com/Giulio2002/bufdb"
)

// Cached benchmark database directory
const benchCacheDir = "testdata/benchdb"

// benchKeys is the size of the sequential-key fixture.
const benchKeys = 100_000

const tableName = "bench"

var (
	cacheMu   sync.Mutex
	bufdbEnvs = make(map[string]*bufdb.Env)
	mdbxEnvs  = make(map[string]*mdbxgo.Env)
	boltDBs   = make(map[string]*bolt.DB)
	rocksDBs  = make(map[string]*gorocksdb.DB)
)

// Entry i has an 8-byte big-endian key (so keys sort numerically and can be
// appended) and a 32-byte value: int64 i, float64 i/2, 16 zero bytes.
func benchKey(dst []byte, i int) {
	binary.BigEndian.PutUint64(dst, uint64(i))
}

func benchVal(dst []byte, i int) {
	binary.LittleEndian.PutUint64(dst, uint64(i))
	binary.LittleEndian.PutUint64(dst[8:], math.Float64bits(float64(i)/2))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// getCachedBufdb returns a bufdb environment of the given engine holding the
// sequential fixture, creating it if needed. The memory engine is rebuilt
// once per process.
func getCachedBufdb(b *testing.B, engineName string, size int) (*bufdb.Env, *bufdb.Table) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("%s_%d", engineName, size)
	if env, ok := bufdbEnvs[key]; ok {
		tbl, err := env.OpenTable(tableName, bufdb.DBDefaults)
		if err != nil {
			b.Fatal(err)
		}
		return env, tbl
	}

	env, err := bufdb.Open(bufdb.Config{
		Engine:  engineName,
		Path:    filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_%s", size, engineName)),
		MapSize: 1 << 30,
		NoSync:  true,
	})
	if err != nil {
		b.Fatal(err)
	}
	tbl, err := env.OpenTable(tableName, bufdb.DBDefaults)
	if err != nil {
		env.Close()
		b.Fatal(err)
	}

	st, err := tbl.Stat()
	if err != nil {
		env.Close()
		b.Fatal(err)
	}
	if st.Entries != uint64(size) {
		b.Logf("Creating cached %s DB with %d keys...", engineName, size)
		if err := tbl.Drop(true); err != nil {
			b.Fatal(err)
		}
		if err := appendBufdb(tbl, size); err != nil {
			b.Fatal(err)
		}
	} else {
		b.Logf("Using cached %s DB with %d keys", engineName, size)
	}

	bufdbEnvs[key] = env
	return env, tbl
}

// appendBufdb loads the fixture through a writer cursor.
func appendBufdb(tbl *bufdb.Table, size int) error {
	w, err := tbl.BufferCursorWriter()
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	for i := 0; i < size; i++ {
		benchKey(key, i)
		w.KeyWriteBytes(key).
			ValWriteInt64(int64(i)).
			ValWriteFloat64(float64(i) / 2).
			ValWriteBytes(make([]byte, 16))
		if err := w.Append(); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// getCachedMdbx returns a raw mdbx-go environment holding the fixture.
func getCachedMdbx(b *testing.B, size int) *mdbxgo.Env {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("mdbx_%d", size)
	if env, ok := mdbxEnvs[key]; ok {
		return env
	}
	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_raw.mdbx", size))
	exists := fileExists(path)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	env, err := mdbxgo.NewEnv(mdbxgo.Label("bench"))
	if err != nil {
		b.Fatal(err)
	}
	env.SetOption(mdbxgo.OptMaxDB, 10)
	env.SetGeometry(-1, -1, 1<<30, -1, -1, 4096)
	if err := env.Open(path, mdbxgo.NoSubdir|mdbxgo.NoMetaSync|mdbxgo.WriteMap, 0644); err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached mdbx DB with %d keys...", size)
		if err := appendMdbx(env, size); err != nil {
			b.Fatal(err)
		}
	} else {
		b.Logf("Using cached mdbx DB with %d keys", size)
	}

	mdbxEnvs[key] = env
	return env
}

// appendMdbx loads the fixture with MDBX_APPEND. The caller locks the OS
// thread.
func appendMdbx(env *mdbxgo.Env, size int) error {
	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		return err
	}
	dbi, err := txn.OpenDBI(tableName, mdbxgo.Create, nil, nil)
	if err != nil {
		txn.Abort()
		return err
	}
	key := make([]byte, 8)
	val := make([]byte, 32)
	for i := 0; i < size; i++ {
		benchKey(key, i)
		benchVal(val, i)
		if err := txn.Put(dbi, key, val, mdbxgo.Append); err != nil {
			txn.Abort()
			return err
		}
	}
	_, err = txn.Commit()
	return err
}

// getCachedBoltDB returns a cached BoltDB database, creating it if needed.
func getCachedBoltDB(b *testing.B, size int) *bolt.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("bolt_%d", size)
	if db, ok := boltDBs[key]; ok {
		return db
	}
	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_raw.bolt", size))
	exists := fileExists(path)

	db, err := bolt.Open(path, 0644, &bolt.Options{
		NoSync:         true,
		NoFreelistSync: true,
	})
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached BoltDB with %d keys...", size)
		if err := appendBolt(db, size); err != nil {
			b.Fatal(err)
		}
	} else {
		b.Logf("Using cached BoltDB with %d keys", size)
	}

	boltDBs[key] = db
	return db
}

func appendBolt(db *bolt.DB, size int) error {
	return db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(tableName))
		if err != nil {
			return err
		}
		bucket.FillPercent = 1.0
		for i := 0; i < size; i++ {
			key := make([]byte, 8)
			val := make([]byte, 32)
			benchKey(key, i)
			benchVal(val, i)
			if err := bucket.Put(key, val); err != nil {
				return err
			}
		}
		return nil
	})
}

// getCachedRocksDB returns a cached RocksDB database, creating it if needed.
func getCachedRocksDB(b *testing.B, size int) *gorocksdb.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("rocks_%d", size)
	if db, ok := rocksDBs[key]; ok {
		return db
	}
	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_rocks.db", size))
	exists := fileExists(path)

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetWriteBufferSize(64 * 1024 * 1024) // 64MB write buffer
	opts.SetMaxWriteBufferNumber(3)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached RocksDB with %d keys...", size)
		if err := loadRocks(db, size); err != nil {
			b.Fatal(err)
		}
	} else {
		b.Logf("Using cached RocksDB with %d keys", size)
	}

	rocksDBs[key] = db
	return db
}

func loadRocks(db *gorocksdb.DB, size int) error {
	wo := gorocksdb.NewDefaultWriteOptions()
	defer wo.Destroy()
	batch := gorocksdb.NewWriteBatch()
	defer batch.Destroy()

	key := make([]byte, 8)
	val := make([]byte, 32)
	for i := 0; i < size; i++ {
		benchKey(key, i)
		benchVal(val, i)
		batch.Put(key, val)
	}
	return db.Write(wo, batch)
}

// CleanupBenchCache closes all cached environments.
// Call this in TestMain or after benchmarks complete.
func CleanupBenchCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	for _, env := range bufdbEnvs {
		env.Close()
	}
	for _, env := range mdbxEnvs {
		env.Close()
	}
	for _, db := range boltDBs {
		db.Close()
	}
	for _, db := range rocksDBs {
		db.Close()
	}
	bufdbEnvs = make(map[string]*bufdb.Env)
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	boltDBs = make(map[string]*bolt.DB)
	rocksDBs = make(map[string]*gorocksdb.DB)
}

// DeleteBenchCache removes all cached database files.
func DeleteBenchCache() error {
	return os.RemoveAll(benchCacheDir)
}
