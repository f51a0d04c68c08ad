package mdbxengine

import (
	"errors"
	"syscall"
	"testing"

	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/bufdb/engine"
)

func openEnv(t *testing.T) *Env {
	t.Helper()
	env, err := Open(engine.Options{Path: t.TempDir(), MapSize: 64 << 20, MaxTables: 8, NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })
	return env
}

func TestPutGet(t *testing.T) {
	env := openEnv(t)

	txn, err := env.BeginTxn(false)
	require.NoError(t, err)
	dbi, err := txn.OpenTable("t", engine.Create)
	require.NoError(t, err)
	require.NoError(t, txn.Put(dbi, []byte("a"), []byte("1"), 0))
	require.True(t, engine.IsKeyExist(txn.Put(dbi, []byte("a"), []byte("2"), engine.NoOverwrite)))
	require.NoError(t, txn.Commit())

	r, err := env.BeginTxn(true)
	require.NoError(t, err)
	defer r.Abort()

	v, err := r.Get(dbi, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, "1", string(v))

	_, err = r.Get(dbi, []byte("b"))
	require.True(t, engine.IsNotFound(err))

	errno, _ := engine.ErrnoOf(r.Put(dbi, []byte("b"), []byte("x"), 0))
	require.Equal(t, engine.EACCES, errno)
}

func TestDupCursor(t *testing.T) {
	env := openEnv(t)

	txn, err := env.BeginTxn(false)
	require.NoError(t, err)
	defer txn.Abort()

	dbi, err := txn.OpenTable("dups", engine.Create|engine.DupSort)
	require.NoError(t, err)
	flags, err := txn.Flags(dbi)
	require.NoError(t, err)
	require.Equal(t, engine.DupSort, flags)

	for _, v := range []string{"3", "1", "2"} {
		require.NoError(t, txn.Put(dbi, []byte("k"), []byte(v), 0))
	}

	c, err := txn.OpenCursor(dbi)
	require.NoError(t, err)
	defer c.Close()

	_, v, err := c.Get([]byte("k"), nil, engine.Set)
	require.NoError(t, err)
	require.Equal(t, "1", string(v))

	n, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	_, v, err = c.Get(nil, nil, engine.NextDup)
	require.NoError(t, err)
	require.Equal(t, "2", string(v))

	require.NoError(t, c.Del(0))
	_, v, err = c.Get(nil, nil, engine.Next)
	require.NoError(t, err)
	require.Equal(t, "3", string(v))

	err = c.Put([]byte("a"), []byte("0"), engine.Append|engine.AppendDup)
	errno, _ := engine.ErrnoOf(err)
	require.Equal(t, engine.KeyMismatch, errno)

	st, err := txn.Stat(dbi)
	require.NoError(t, err)
	require.Equal(t, uint64(2), st.Entries)
	require.NotZero(t, st.PSize)
}

func TestFailedMoveKeepsPosition(t *testing.T) {
	env := openEnv(t)

	txn, err := env.BeginTxn(false)
	require.NoError(t, err)
	defer txn.Abort()

	dbi, err := txn.OpenTable("dups", engine.Create|engine.DupSort)
	require.NoError(t, err)
	require.NoError(t, txn.Put(dbi, []byte("a"), []byte("1"), 0))
	for _, v := range []string{"1", "2", "3"} {
		require.NoError(t, txn.Put(dbi, []byte("b"), []byte(v), 0))
	}

	c, err := txn.OpenCursor(dbi)
	require.NoError(t, err)
	defer c.Close()

	k, v, err := c.Get(nil, nil, engine.Last)
	require.NoError(t, err)
	require.Equal(t, "b=3", string(k)+"="+string(v))

	for i := 0; i < 2; i++ {
		_, _, err = c.Get(nil, nil, engine.Next)
		require.True(t, engine.IsNotFound(err))
	}
	k, v, err = c.Get(nil, nil, engine.Prev)
	require.NoError(t, err)
	require.Equal(t, "b=2", string(k)+"="+string(v))

	_, _, err = c.Get(nil, nil, engine.First)
	require.NoError(t, err)
	_, _, err = c.Get(nil, nil, engine.Prev)
	require.True(t, engine.IsNotFound(err))
	k, v, err = c.Get(nil, nil, engine.Next)
	require.NoError(t, err)
	require.Equal(t, "b=1", string(k)+"="+string(v))

	_, _, err = c.Get(nil, nil, engine.NextDup)
	require.NoError(t, err)
	_, _, err = c.Get(nil, nil, engine.NextDup)
	require.NoError(t, err)
	_, _, err = c.Get(nil, nil, engine.NextDup)
	require.True(t, engine.IsNotFound(err))
	k, v, err = c.Get(nil, nil, engine.PrevDup)
	require.NoError(t, err)
	require.Equal(t, "b=2", string(k)+"="+string(v))
}

func TestWrapErrno(t *testing.T) {
	errno, ok := engine.ErrnoOf(wrap("put", &mdbx.OpError{Op: "mdbx_put", Errno: mdbx.Errno(engine.KeyMismatch)}))
	require.True(t, ok)
	require.Equal(t, engine.KeyMismatch, errno)

	errno, ok = engine.ErrnoOf(wrap("open", &mdbx.OpError{Op: "mdbx_env_open", Errno: syscall.EINVAL}))
	require.True(t, ok)
	require.Equal(t, engine.EINVAL, errno)

	require.True(t, engine.IsNotFound(wrap("get", mdbx.ErrNotFound)))
	require.Nil(t, wrap("get", nil))

	other := errors.New("boom")
	_, ok = engine.ErrnoOf(wrap("get", other))
	require.False(t, ok)
}
