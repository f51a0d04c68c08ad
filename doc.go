// Package bufdb provides typed, zero-copy cursors over sorted key/value
// storage engines.
//
// Entries are read and written through DirectBuffers: fixed regions of
// memory outside the Go heap in which primitives live at explicit byte
// offsets. A Reader cursor points its buffers straight at engine memory, so
// walking a table copies nothing. A Writer cursor stages new keys and values
// with chained KeyWrite*/ValWrite* calls and commits them with Put,
// Overwrite or Append.
//
// Encoding contract:
//   - Integers and floats are stored little-endian regardless of the host.
//   - Strings are UTF-8 followed by one NUL byte.
//   - Keys sort as unsigned bytes, so little-endian integers do not sort
//     numerically, and a 1-byte key [1] sorts before the 8-byte key
//     [1 0 0 0 0 0 0 0], which sorts before [2].
//
// Storage engines are pluggable (see package engine). Three are built in:
// "memory" (copy-on-write B-tree), "bolt" (bbolt, pure Go) and "mdbx"
// (libmdbx through mdbx-go).
//
// Basic usage:
//
//	env, err := bufdb.Open(bufdb.Config{Engine: "bolt", Path: dir})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
//
//	tbl, err := env.OpenTable("prices", bufdb.DBDefaults)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := tbl.BufferCursorWriter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w.KeyWriteInt64(42).ValWriteFloat64(9.75).ValWriteUTF8("EUR")
//	if _, err := w.Put(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.Close(); err != nil { // commits
//	    log.Fatal(err)
//	}
//
//	r, err := tbl.BufferCursor()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	for ok, err := r.First(); ok && err == nil; ok, err = r.Next() {
//	    price, _ := r.ValFloat64(0)
//	    currency, _ := r.ValUTF8(8)
//	    fmt.Println(price, currency)
//	}
package bufdb
