//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Anonymous reserves and commits a zero-filled read-write region of length
// bytes.
func Anonymous(length int) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}

	addr, err := windows.VirtualAlloc(0, uintptr(length), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, &Error{Op: "VirtualAlloc", Err: err}
	}

	return &Map{
		data: unsafe.Slice((*byte)(unsafe.Pointer(addr)), length),
		size: length,
	}, nil
}

// Close releases the memory mapping. Closing twice is a no-op.
func (m *Map) Close() error {
	if m.data == nil {
		return nil
	}

	addr := uintptr(unsafe.Pointer(&m.data[0]))
	m.data = nil
	m.size = 0
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return &Error{Op: "VirtualFree", Err: err}
	}
	return nil
}

// Lock locks the mapped pages in memory (prevents swapping).
func (m *Map) Lock() error {
	if m.data == nil {
		return ErrNotMapped
	}
	return windows.VirtualLock(uintptr(unsafe.Pointer(&m.data[0])), uintptr(m.size))
}

// Unlock unlocks the mapped pages.
func (m *Map) Unlock() error {
	if m.data == nil {
		return ErrNotMapped
	}
	return windows.VirtualUnlock(uintptr(unsafe.Pointer(&m.data[0])), uintptr(m.size))
}
