package bufdb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateDirect(t *testing.T) {
	v, err := AllocateDirect(128)
	require.NoError(t, err)
	assert.Equal(t, 128, v.Len())
	assert.True(t, v.Direct())
	assert.Equal(t, Owned, v.Ownership())
	require.NoError(t, v.Free())
	assert.True(t, IsInvalidArgument(v.Free()), "double free")

	empty, err := AllocateDirect(0)
	require.NoError(t, err)
	assert.True(t, empty.Direct())
	assert.Equal(t, 0, empty.Len())

	_, err = AllocateDirect(-1)
	assert.True(t, IsInvalidArgument(err))
}

func TestNewDirectBufferRejectsHeap(t *testing.T) {
	heap := WrapHeap(make([]byte, 16))
	assert.False(t, heap.Direct())
	_, err := NewDirectBuffer(heap)
	assert.True(t, IsInvalidArgument(err))
	assert.Equal(t, ErrInvalidArgument, Code(err))
	assert.True(t, IsInvalidArgument(heap.Free()), "borrowed views are not freed")

	_, err = NewDirectBuffer(nil)
	assert.True(t, IsInvalidArgument(err))
}

func TestNewDirectBufferBorrows(t *testing.T) {
	v, err := AllocateDirect(8)
	require.NoError(t, err)
	defer v.Free()

	b, err := NewDirectBuffer(v)
	require.NoError(t, err)
	require.NoError(t, b.PutInt64(0, 7))
	assert.Equal(t, Borrowed, b.View().Ownership())
	assert.True(t, IsInvalidArgument(b.Free()), "the view keeps ownership")

	got := getUint64LE(v.Bytes())
	assert.EqualValues(t, 7, got)

	sub, err := v.Slice(4, 4)
	require.NoError(t, err)
	assert.Equal(t, Borrowed, sub.Ownership())
	_, err = v.Slice(6, 4)
	assert.True(t, IsOutOfRange(err))
}

// Field layout: byte@0 int32@1 int64@5 float32@13 float64@17 utf8@25.
func TestBufferDataTypes(t *testing.T) {
	b, err := AllocateBuffer(32)
	require.NoError(t, err)
	defer b.Free()

	require.NoError(t, b.PutByte(0, 0xAB))
	require.NoError(t, b.PutInt32(1, -123456))
	require.NoError(t, b.PutInt64(5, math.MinInt64+1))
	require.NoError(t, b.PutFloat32(13, 3.5))
	require.NoError(t, b.PutFloat64(17, -2.25))
	n, err := b.PutUTF8(25, "hé")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "two bytes of é plus NUL")
	assert.Equal(t, 29, b.Limit())

	bv, err := b.GetByte(0)
	require.NoError(t, err)
	assert.EqualValues(t, 0xAB, bv)
	i32, err := b.GetInt32(1)
	require.NoError(t, err)
	assert.EqualValues(t, -123456, i32)
	i64, err := b.GetInt64(5)
	require.NoError(t, err)
	assert.EqualValues(t, math.MinInt64+1, i64)
	f32, err := b.GetFloat32(13)
	require.NoError(t, err)
	assert.EqualValues(t, 3.5, f32)
	f64, err := b.GetFloat64(17)
	require.NoError(t, err)
	assert.EqualValues(t, -2.25, f64)
	s, err := b.GetUTF8(25)
	require.NoError(t, err)
	assert.Equal(t, "hé", s)
	assert.Len(t, s, 3)

	// Little-endian on every host.
	assert.Equal(t, []byte{0xC0, 0x1D, 0xFE, 0xFF}, b.Bytes()[1:5])
}

func TestBufferBounds(t *testing.T) {
	b, err := AllocateBuffer(8)
	require.NoError(t, err)
	defer b.Free()

	for name, err := range map[string]error{
		"int64 past end": b.PutInt64(1, 1),
		"int32 past end": b.PutInt32(5, 1),
		"negative":       b.PutByte(-1, 1),
		"bytes":          b.PutBytes(4, make([]byte, 5)),
	} {
		assert.True(t, IsOutOfRange(err), name)
	}
	assert.Equal(t, make([]byte, 8), b.Bytes(), "failed writes touch nothing")
	assert.Equal(t, 0, b.Limit())

	_, err = b.GetFloat64(1)
	assert.True(t, IsOutOfRange(err))
	_, err = b.GetBytes(0, 9)
	assert.True(t, IsOutOfRange(err))

	_, err = b.PutUTF8(4, "abcd")
	assert.True(t, IsOutOfRange(err), "terminator must fit")
	n, err := b.PutUTF8(4, "abc")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, b.PutBytes(0, []byte("xxxxxxxx")))
	_, err = b.GetUTF8(0)
	assert.True(t, IsOutOfRange(err), "no terminator within capacity")
}

func TestBufferUTF8Bytes(t *testing.T) {
	b, err := AllocateBuffer(16)
	require.NoError(t, err)
	defer b.Free()

	n, err := b.PutUTF8Bytes(2, []byte("日本"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	s, err := b.GetUTF8(2)
	require.NoError(t, err)
	assert.Equal(t, "日本", s)

	raw, err := b.GetBytes(2, 7)
	require.NoError(t, err)
	raw[0] = 0
	s, err = b.GetUTF8(2)
	require.NoError(t, err)
	assert.Equal(t, "日本", s, "GetBytes copies")
}

func TestBufferLimit(t *testing.T) {
	b, err := AllocateBuffer(16)
	require.NoError(t, err)
	defer b.Free()

	require.NoError(t, b.PutInt32(8, 1))
	require.NoError(t, b.PutByte(0, 1))
	assert.Equal(t, 12, b.Limit(), "limit is a high-water mark")
	assert.Len(t, b.Written(), 12)

	require.NoError(t, b.SetLimit(3))
	assert.Equal(t, 3, b.Limit())
	assert.True(t, IsOutOfRange(b.SetLimit(17)))
	b.Reset()
	assert.Equal(t, 0, b.Limit())
}

func TestBufferEnsure(t *testing.T) {
	b, err := AllocateBuffer(4)
	require.NoError(t, err)
	defer b.Free()

	require.NoError(t, b.PutInt32(0, 42))
	require.NoError(t, b.ensure(100))
	assert.GreaterOrEqual(t, b.Capacity(), 104)
	v, err := b.GetInt32(0)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v, "growth keeps contents")

	v8, err := AllocateDirect(8)
	require.NoError(t, err)
	defer v8.Free()
	borrowedBuf, err := NewDirectBuffer(v8)
	require.NoError(t, err)
	assert.True(t, IsOutOfRange(borrowedBuf.ensure(9)), "borrowed buffers do not grow")
}

func TestGrownBufferFrees(t *testing.T) {
	b, err := AllocateBuffer(stagingInitialSize)
	require.NoError(t, err)
	for _, n := range []int{4096, 1 << 20, 64 << 20} {
		require.NoError(t, b.ensure(n))
		require.NoError(t, b.PutByte(n-1, 7))
	}
	require.NoError(t, b.Free())
	assert.True(t, IsInvalidArgument(b.Free()), "second free fails")
}

func TestReadOnlyBuffer(t *testing.T) {
	mem, err := AllocateDirect(8)
	require.NoError(t, err)
	defer mem.Free()

	var b DirectBuffer
	b.point(borrowed(mem.Bytes()))
	assert.True(t, b.View().ReadOnly())
	assert.True(t, IsPermissionDenied(b.PutByte(0, 1)))
	_, err = b.PutUTF8(0, "a")
	assert.True(t, IsPermissionDenied(err))
	_, err = b.GetByte(0)
	require.NoError(t, err)
}

func TestIntBytes(t *testing.T) {
	assert.Equal(t, []byte{5, 0, 0, 0, 0, 0, 0, 0}, Int64Bytes(5))
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, Int32Bytes(-1))
}
