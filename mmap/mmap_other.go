//go:build !linux

package mmap

import "errors"

// tryMremap is only available on Linux; the caller falls back to map+copy.
func (m *Map) tryMremap(newSize int) ([]byte, error) {
	return nil, errors.New("mremap not available")
}
