// Package mmap allocates memory regions outside the Go heap.
//
// Regions are anonymous private mappings. Their addresses never move and the
// garbage collector never scans them, so they can be handed to native code
// and kept there for as long as the region is open.
package mmap

// Map is an anonymous memory mapping.
type Map struct {
	data []byte // Mapped memory region
	size int    // Current mapped size
}

// Data returns the mapped byte slice.
func (m *Map) Data() []byte {
	return m.data
}

// Size returns the current mapped size.
func (m *Map) Size() int {
	return m.size
}

// Mapped reports whether the region is still open.
func (m *Map) Mapped() bool {
	return m.data != nil
}

// Resize changes the size of the mapping, preserving the first
// min(old, new) bytes. The region may move; slices taken from Data before the
// call must not be used afterwards.
func (m *Map) Resize(newSize int) error {
	if m.data == nil {
		return ErrNotMapped
	}
	if newSize <= 0 {
		return ErrInvalidSize
	}
	if newSize == m.size {
		return nil
	}

	if data, err := m.tryMremap(newSize); err == nil {
		m.data = data
		m.size = newSize
		return nil
	}

	// Fallback: map a fresh region and copy.
	next, err := Anonymous(newSize)
	if err != nil {
		return err
	}
	copy(next.data, m.data)
	if err := m.Close(); err != nil {
		next.Close()
		return err
	}
	m.data = next.data
	m.size = next.size
	return nil
}

// Error represents an mmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidSize = &Error{Op: "invalid size"}
	ErrNotMapped   = &Error{Op: "not mapped"}
)
