package bufdb

import (
	"github.com/Giulio2002/bufdb/mmap"
)

// Ownership tells who releases a View's memory.
type Ownership uint8

const (
	// Borrowed memory belongs to someone else (the engine, the caller, or
	// another View) and must outlive every user of the view.
	Borrowed Ownership = iota
	// Owned memory is released by Free, exactly once.
	Owned
)

func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

// View is a byte region with an explicit owner.
//
// A direct view lives outside the Go heap: an anonymous memory map allocated
// by AllocateDirect, or memory mapped by the storage engine. Only direct views
// can back a DirectBuffer.
type View struct {
	data     []byte
	own      Ownership
	direct   bool
	readOnly bool
	region   *mmap.Map // backing region of Owned views
	freed    bool
}

// AllocateDirect allocates an Owned, zero-filled direct view of n bytes.
func AllocateDirect(n int) (*View, error) {
	if n < 0 {
		return nil, NewError(ErrInvalidArgument)
	}
	if n == 0 {
		return &View{data: []byte{}, own: Owned, direct: true}, nil
	}
	m, err := mmap.Anonymous(n)
	if err != nil {
		return nil, WrapError(ErrProblem, err)
	}
	return &View{data: m.Data(), own: Owned, direct: true, region: m}, nil
}

// WrapHeap returns a Borrowed view over Go heap memory. Heap views are not
// direct and are rejected by NewDirectBuffer.
func WrapHeap(b []byte) *View {
	return &View{data: b, own: Borrowed}
}

// borrowed wraps engine memory: direct and not writable.
func borrowed(b []byte) View {
	return View{data: b, own: Borrowed, direct: true, readOnly: true}
}

// Bytes returns the view's memory.
func (v *View) Bytes() []byte { return v.data }

// Len returns the view's length in bytes.
func (v *View) Len() int { return len(v.data) }

// Ownership returns who releases the view.
func (v *View) Ownership() Ownership { return v.own }

// Direct reports whether the view lives outside the Go heap.
func (v *View) Direct() bool { return v.direct }

// ReadOnly reports whether the view rejects writes.
func (v *View) ReadOnly() bool { return v.readOnly }

// Slice returns a Borrowed view of n bytes starting at off, sharing memory
// with v.
func (v *View) Slice(off, n int) (*View, error) {
	if off < 0 || n < 0 || off+n > len(v.data) {
		return nil, NewError(ErrOutOfRange)
	}
	return &View{
		data:     v.data[off : off+n : off+n],
		own:      Borrowed,
		direct:   v.direct,
		readOnly: v.readOnly,
	}, nil
}

// Free releases an Owned view. Freeing a Borrowed view, or freeing twice,
// fails with ErrInvalidArgument.
func (v *View) Free() error {
	if v.own != Owned || v.freed {
		return NewError(ErrInvalidArgument)
	}
	v.freed = true
	v.data = nil
	if v.region == nil {
		return nil
	}
	err := v.region.Close()
	v.region = nil
	if err != nil {
		return WrapError(ErrProblem, err)
	}
	return nil
}

// grow resizes an Owned view to at least n bytes, keeping its contents.
// Slices of the old memory must not be used afterwards.
func (v *View) grow(n int) error {
	if v.own != Owned || v.freed {
		return NewError(ErrInvalidArgument)
	}
	if n <= len(v.data) {
		return nil
	}
	if v.region == nil {
		m, err := mmap.Anonymous(n)
		if err != nil {
			return WrapError(ErrProblem, err)
		}
		copy(m.Data(), v.data)
		v.region = m
		v.data = m.Data()
		return nil
	}
	if err := v.region.Resize(n); err != nil {
		return WrapError(ErrProblem, err)
	}
	v.data = v.region.Data()
	return nil
}
