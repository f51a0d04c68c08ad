//go:build linux

package mmap

import (
	"golang.org/x/sys/unix"
)

// tryMremap grows or shrinks the region in place, or moves it. unix.Mremap
// keeps the x/sys mapping table current, so Close can still unmap a region
// that moved.
func (m *Map) tryMremap(newSize int) ([]byte, error) {
	return unix.Mremap(m.data, newSize, unix.MREMAP_MAYMOVE)
}
