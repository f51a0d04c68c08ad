package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Options configures an environment.
type Options struct {
	// Path is the environment directory (or file, for single-file engines).
	// Memory engines ignore it.
	Path string

	// MapSize is the maximum size of the memory map in bytes.
	MapSize int64

	// MaxTables is the maximum number of named tables.
	MaxTables int

	// PageSize requests a page size. Zero selects the engine default.
	PageSize int

	NoSync   bool
	ReadOnly bool
}

// OpenFunc opens an environment.
type OpenFunc func(opts Options) (Env, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// Register makes an engine available by name. It panics if Register is
// called twice with the same name or if open is nil.
func Register(name string, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if open == nil {
		panic("engine: Register open func is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("engine: Register called twice for engine " + name)
	}
	drivers[name] = open
}

// Open opens an environment with the named engine.
func Open(name string, opts Options) (Env, error) {
	driversMu.RLock()
	open, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: unknown engine %q (forgotten import?)", name)
	}
	return open(opts)
}

// Engines returns a sorted list of the names of the registered engines.
func Engines() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	list := make([]string, 0, len(drivers))
	for name := range drivers {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}
