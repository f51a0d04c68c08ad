package pairnav

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/bufdb/engine"
)

type pair struct{ k, v string }

// sliceStore is a sorted slice of pairs.
type sliceStore []pair

func (s sliceStore) Ceil(key, val []byte) ([]byte, []byte, bool) {
	i := sort.Search(len(s), func(i int) bool {
		return Compare([]byte(s[i].k), []byte(s[i].v), key, val) >= 0
	})
	if i == len(s) {
		return nil, nil, false
	}
	return []byte(s[i].k), []byte(s[i].v), true
}

func (s sliceStore) Lower(key, val []byte) ([]byte, []byte, bool) {
	i := sort.Search(len(s), func(i int) bool {
		return Compare([]byte(s[i].k), []byte(s[i].v), key, val) >= 0
	})
	if i == 0 {
		return nil, nil, false
	}
	return []byte(s[i-1].k), []byte(s[i-1].v), true
}

func (s sliceStore) Min() ([]byte, []byte, bool) {
	if len(s) == 0 {
		return nil, nil, false
	}
	return []byte(s[0].k), []byte(s[0].v), true
}

func (s sliceStore) Max() ([]byte, []byte, bool) {
	if len(s) == 0 {
		return nil, nil, false
	}
	return []byte(s[len(s)-1].k), []byte(s[len(s)-1].v), true
}

func (s *sliceStore) remove(k, v string) {
	for i, p := range *s {
		if p.k == k && p.v == v {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return
		}
	}
}

func dupStore() sliceStore {
	return sliceStore{
		{"a", "1"},
		{"b", "1"}, {"b", "2"}, {"b", "3"},
		{"c", "1"},
	}
}

func requirePair(t *testing.T, k, v []byte, err error, wantK, wantV string) {
	t.Helper()
	require.NoError(t, err)
	require.Equal(t, wantK, string(k))
	require.Equal(t, wantV, string(v))
}

func TestNextPrevAcrossDups(t *testing.T) {
	s := dupStore()
	c := New(true)

	var got []string
	for k, v, err := c.Get(s, nil, nil, engine.First); err == nil; k, v, err = c.Get(s, nil, nil, engine.Next) {
		got = append(got, string(k)+string(v))
	}
	require.Equal(t, []string{"a1", "b1", "b2", "b3", "c1"}, got)

	// Failed Next leaves the cursor on the last pair.
	_, _, err := c.Get(s, nil, nil, engine.Next)
	require.True(t, engine.IsNotFound(err))
	k, v, err := c.Get(s, nil, nil, engine.GetCurrent)
	requirePair(t, k, v, err, "c", "1")

	k, v, err = c.Get(s, nil, nil, engine.Prev)
	requirePair(t, k, v, err, "b", "3")
}

func TestDupMoves(t *testing.T) {
	s := dupStore()
	c := New(true)

	k, v, err := c.Get(s, []byte("b"), nil, engine.Set)
	requirePair(t, k, v, err, "b", "1")

	_, _, err = c.Get(s, nil, nil, engine.PrevDup)
	require.True(t, engine.IsNotFound(err))

	k, v, err = c.Get(s, nil, nil, engine.LastDup)
	requirePair(t, k, v, err, "b", "3")

	_, _, err = c.Get(s, nil, nil, engine.NextDup)
	require.True(t, engine.IsNotFound(err))
	k, v, _ = c.Get(s, nil, nil, engine.GetCurrent)
	require.Equal(t, "b3", string(k)+string(v))

	k, v, err = c.Get(s, nil, nil, engine.PrevDup)
	requirePair(t, k, v, err, "b", "2")

	k, v, err = c.Get(s, nil, nil, engine.FirstDup)
	requirePair(t, k, v, err, "b", "1")

	k, v, err = c.Get(s, nil, nil, engine.NextNoDup)
	requirePair(t, k, v, err, "c", "1")

	k, v, err = c.Get(s, nil, nil, engine.PrevNoDup)
	requirePair(t, k, v, err, "b", "3")
}

func TestSeekOps(t *testing.T) {
	s := dupStore()
	c := New(true)

	k, v, err := c.Get(s, []byte("bb"), nil, engine.SetRange)
	requirePair(t, k, v, err, "c", "1")

	_, _, err = c.Get(s, []byte("bb"), nil, engine.Set)
	require.True(t, engine.IsNotFound(err))

	k, v, err = c.Get(s, []byte("b"), []byte("2"), engine.GetBoth)
	requirePair(t, k, v, err, "b", "2")

	_, _, err = c.Get(s, []byte("b"), []byte("22"), engine.GetBoth)
	require.True(t, engine.IsNotFound(err))

	k, v, err = c.Get(s, []byte("b"), []byte("22"), engine.GetBothRange)
	requirePair(t, k, v, err, "b", "3")

	_, _, err = c.Get(s, []byte("z"), nil, engine.SetRange)
	require.True(t, engine.IsNotFound(err))
	// still on b3
	k, v, _ = c.Get(s, nil, nil, engine.GetCurrent)
	require.Equal(t, "b3", string(k)+string(v))
}

func TestDeletedPosition(t *testing.T) {
	s := dupStore()
	c := New(true)

	_, _, err := c.Get(s, []byte("b"), []byte("2"), engine.GetBoth)
	require.NoError(t, err)
	s.remove("b", "2")
	c.MarkDeleted()

	_, _, err = c.Get(s, nil, nil, engine.GetCurrent)
	require.True(t, engine.IsNotFound(err))

	k, v, err := c.Get(s, nil, nil, engine.Next)
	requirePair(t, k, v, err, "b", "3")

	s.remove("b", "3")
	c.MarkDeleted()
	k, v, err = c.Get(s, nil, nil, engine.Prev)
	requirePair(t, k, v, err, "b", "1")
}

func TestPlainTable(t *testing.T) {
	s := sliceStore{{"a", "x"}, {"ab", "y"}, {"b", "z"}}
	c := New(false)

	k, v, err := c.Get(s, nil, nil, engine.Last)
	requirePair(t, k, v, err, "b", "z")
	k, v, err = c.Get(s, nil, nil, engine.Prev)
	requirePair(t, k, v, err, "ab", "y")

	_, _, err = c.Get(s, nil, nil, engine.NextDup)
	require.True(t, engine.IsNotFound(err))

	_, _, err = c.Get(s, []byte("a"), []byte("x"), engine.GetBothRange)
	require.Equal(t, engine.Incompatible, mustErrno(t, err))

	s.remove("ab", "y")
	c.MarkDeleted()
	k, v, err = c.Get(s, nil, nil, engine.Next)
	requirePair(t, k, v, err, "b", "z")
}

func TestUnpositioned(t *testing.T) {
	s := dupStore()
	c := New(true)

	_, _, err := c.Get(s, nil, nil, engine.NextDup)
	require.Equal(t, engine.EINVAL, mustErrno(t, err))

	k, v, err := c.Get(s, nil, nil, engine.Prev)
	requirePair(t, k, v, err, "c", "1")

	c.Reset()
	k, v, err = c.Get(s, nil, nil, engine.Next)
	requirePair(t, k, v, err, "a", "1")

	var empty sliceStore
	c = New(false)
	_, _, err = c.Get(empty, nil, nil, engine.First)
	require.True(t, engine.IsNotFound(err))
	_, _, ok := c.Position()
	require.False(t, ok)
}

func mustErrno(t *testing.T, err error) engine.Errno {
	t.Helper()
	errno, ok := engine.ErrnoOf(err)
	require.True(t, ok, "error %v carries no errno", err)
	return errno
}
