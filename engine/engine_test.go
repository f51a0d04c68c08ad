package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type nopEnv struct{}

func (nopEnv) BeginTxn(bool) (Txn, error) { return nil, Fail("begin", EINVAL) }
func (nopEnv) Close() error               { return nil }

func TestRegisterOpen(t *testing.T) {
	Register("nop-test", func(opts Options) (Env, error) { return nopEnv{}, nil })

	env, err := Open("nop-test", Options{})
	require.NoError(t, err)
	require.NotNil(t, env)
	require.Contains(t, Engines(), "nop-test")

	_, err = Open("no-such-engine", Options{})
	require.Error(t, err)

	require.Panics(t, func() {
		Register("nop-test", func(Options) (Env, error) { return nopEnv{}, nil })
	})
	require.Panics(t, func() { Register("nil-open", nil) })
}

func TestErrno(t *testing.T) {
	err := Fail("cursor_get", NotFound)
	require.True(t, IsNotFound(err))
	require.False(t, IsKeyExist(err))
	require.True(t, errors.Is(err, NotFound))
	require.Equal(t, "cursor_get: key/data pair not found", err.Error())

	errno, ok := ErrnoOf(err)
	require.True(t, ok)
	require.Equal(t, NotFound, errno)

	_, ok = ErrnoOf(errors.New("plain"))
	require.False(t, ok)

	require.Equal(t, "errno -1", Errno(-1).Error())
}

func TestOpName(t *testing.T) {
	require.Equal(t, "set_range", OpName(SetRange))
	require.Equal(t, "unknown", OpName(999))
	// MDBX numbering
	require.Equal(t, uint(17), SetRange)
	require.Equal(t, uint(8), Next)
}
