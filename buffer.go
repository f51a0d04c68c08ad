package bufdb

import (
	"bytes"
	"math"
)

// DirectBuffer reads and writes little-endian primitives at explicit offsets
// inside a direct View.
//
// Every accessor checks offset+width against the capacity and fails with
// ErrOutOfRange before touching memory. Writes also advance the limit, the
// high-water mark of bytes written, which cursor staging appends after.
type DirectBuffer struct {
	view  View
	limit int
}

// NewDirectBuffer wraps v. Views that are not direct are rejected with
// ErrInvalidArgument; their contents are never copied. The buffer borrows
// v's memory: v keeps ownership and must outlive the buffer.
func NewDirectBuffer(v *View) (*DirectBuffer, error) {
	if v == nil || !v.direct || v.freed {
		return nil, NewError(ErrInvalidArgument)
	}
	bv := *v
	bv.own = Borrowed
	bv.region = nil
	return &DirectBuffer{view: bv}, nil
}

// AllocateBuffer returns a buffer over a fresh Owned direct view of n bytes.
func AllocateBuffer(n int) (*DirectBuffer, error) {
	v, err := AllocateDirect(n)
	if err != nil {
		return nil, err
	}
	return &DirectBuffer{view: *v}, nil
}

// Capacity returns the size of the underlying memory.
func (b *DirectBuffer) Capacity() int { return len(b.view.data) }

// Bytes returns the whole underlying memory.
func (b *DirectBuffer) Bytes() []byte { return b.view.data }

// View returns the buffer's current view.
func (b *DirectBuffer) View() *View {
	v := b.view
	return &v
}

// Limit returns the number of bytes written so far.
func (b *DirectBuffer) Limit() int { return b.limit }

// SetLimit sets the write position.
func (b *DirectBuffer) SetLimit(n int) error {
	if n < 0 || n > len(b.view.data) {
		return NewError(ErrOutOfRange)
	}
	b.limit = n
	return nil
}

// Written returns the bytes up to the limit.
func (b *DirectBuffer) Written() []byte { return b.view.data[:b.limit] }

// Reset rewinds the write position. Memory is left as is.
func (b *DirectBuffer) Reset() { b.limit = 0 }

// Free releases the buffer's memory if the buffer owns it.
func (b *DirectBuffer) Free() error {
	if b.view.own != Owned {
		return NewError(ErrInvalidArgument)
	}
	err := b.view.Free()
	b.limit = 0
	return err
}

func (b *DirectBuffer) check(off, width int) error {
	if off < 0 || width < 0 || off > len(b.view.data)-width {
		return NewError(ErrOutOfRange)
	}
	return nil
}

func (b *DirectBuffer) checkWrite(off, width int) error {
	if b.view.readOnly {
		return NewError(ErrPermissionDenied)
	}
	return b.check(off, width)
}

func (b *DirectBuffer) wrote(end int) {
	if end > b.limit {
		b.limit = end
	}
}

// GetByte returns the byte at off.
func (b *DirectBuffer) GetByte(off int) (byte, error) {
	if err := b.check(off, ByteSize); err != nil {
		return 0, err
	}
	return b.view.data[off], nil
}

// PutByte stores v at off.
func (b *DirectBuffer) PutByte(off int, v byte) error {
	if err := b.checkWrite(off, ByteSize); err != nil {
		return err
	}
	b.view.data[off] = v
	b.wrote(off + ByteSize)
	return nil
}

// GetInt32 returns the little-endian int32 at off.
func (b *DirectBuffer) GetInt32(off int) (int32, error) {
	if err := b.check(off, Int32Size); err != nil {
		return 0, err
	}
	return int32(getUint32LE(b.view.data[off:])), nil
}

// PutInt32 stores v little-endian at off.
func (b *DirectBuffer) PutInt32(off int, v int32) error {
	if err := b.checkWrite(off, Int32Size); err != nil {
		return err
	}
	putUint32LE(b.view.data[off:], uint32(v))
	b.wrote(off + Int32Size)
	return nil
}

// GetInt64 returns the little-endian int64 at off.
func (b *DirectBuffer) GetInt64(off int) (int64, error) {
	if err := b.check(off, Int64Size); err != nil {
		return 0, err
	}
	return int64(getUint64LE(b.view.data[off:])), nil
}

// PutInt64 stores v little-endian at off.
func (b *DirectBuffer) PutInt64(off int, v int64) error {
	if err := b.checkWrite(off, Int64Size); err != nil {
		return err
	}
	putUint64LE(b.view.data[off:], uint64(v))
	b.wrote(off + Int64Size)
	return nil
}

// GetFloat32 returns the IEEE 754 float32 at off.
func (b *DirectBuffer) GetFloat32(off int) (float32, error) {
	if err := b.check(off, Float32Size); err != nil {
		return 0, err
	}
	return math.Float32frombits(getUint32LE(b.view.data[off:])), nil
}

// PutFloat32 stores v at off.
func (b *DirectBuffer) PutFloat32(off int, v float32) error {
	if err := b.checkWrite(off, Float32Size); err != nil {
		return err
	}
	putUint32LE(b.view.data[off:], math.Float32bits(v))
	b.wrote(off + Float32Size)
	return nil
}

// GetFloat64 returns the IEEE 754 float64 at off.
func (b *DirectBuffer) GetFloat64(off int) (float64, error) {
	if err := b.check(off, Float64Size); err != nil {
		return 0, err
	}
	return math.Float64frombits(getUint64LE(b.view.data[off:])), nil
}

// PutFloat64 stores v at off.
func (b *DirectBuffer) PutFloat64(off int, v float64) error {
	if err := b.checkWrite(off, Float64Size); err != nil {
		return err
	}
	putUint64LE(b.view.data[off:], math.Float64bits(v))
	b.wrote(off + Float64Size)
	return nil
}

// GetBytes returns a copy of n bytes at off.
func (b *DirectBuffer) GetBytes(off, n int) ([]byte, error) {
	if err := b.check(off, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.view.data[off:])
	return out, nil
}

// PutBytes copies p to off. No terminator is written.
func (b *DirectBuffer) PutBytes(off int, p []byte) error {
	if err := b.checkWrite(off, len(p)); err != nil {
		return err
	}
	copy(b.view.data[off:], p)
	b.wrote(off + len(p))
	return nil
}

// PutUTF8 stores s followed by a NUL byte and returns the bytes written.
func (b *DirectBuffer) PutUTF8(off int, s string) (int, error) {
	n := len(s) + 1
	if err := b.checkWrite(off, n); err != nil {
		return 0, err
	}
	copy(b.view.data[off:], s)
	b.view.data[off+len(s)] = 0
	b.wrote(off + n)
	return n, nil
}

// PutUTF8Bytes stores already encoded UTF-8 bytes followed by a NUL byte and
// returns the bytes written.
func (b *DirectBuffer) PutUTF8Bytes(off int, p []byte) (int, error) {
	n := len(p) + 1
	if err := b.checkWrite(off, n); err != nil {
		return 0, err
	}
	copy(b.view.data[off:], p)
	b.view.data[off+len(p)] = 0
	b.wrote(off + n)
	return n, nil
}

// GetUTF8 returns the NUL-terminated string at off. The terminator must lie
// within the capacity.
func (b *DirectBuffer) GetUTF8(off int) (string, error) {
	if err := b.check(off, 1); err != nil {
		return "", err
	}
	i := bytes.IndexByte(b.view.data[off:], 0)
	if i < 0 {
		return "", NewError(ErrOutOfRange)
	}
	return string(b.view.data[off : off+i]), nil
}

// ensure grows an Owned buffer so that n more bytes fit after the limit.
// Borrowed buffers cannot grow.
func (b *DirectBuffer) ensure(n int) error {
	need := b.limit + n
	if need <= len(b.view.data) {
		return nil
	}
	if b.view.own != Owned {
		return NewError(ErrOutOfRange)
	}
	size := 2 * len(b.view.data)
	if size < stagingInitialSize {
		size = stagingInitialSize
	}
	if size < need {
		size = need
	}
	return b.view.grow(size)
}

// point re-targets the buffer at v, for cursors that expose entries in place.
func (b *DirectBuffer) point(v View) {
	b.view = v
	b.limit = len(v.data)
}
