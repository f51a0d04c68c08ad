package bufdb

import (
	"fmt"

	"github.com/Giulio2002/bufdb/engine"
)

// Version constants
const (
	// Major is the major version number
	Major = 0

	// Minor is the minor version number
	Minor = 1

	// Patch is the patch version number
	Patch = 0
)

// VersionInfo contains version information.
type VersionInfo struct {
	Major    uint8
	Minor    uint8
	Release  uint8
	Describe string
	Engines  []string // registered engines
}

// Version returns the version string of bufdb.
func Version() string {
	return fmt.Sprintf("bufdb %d.%d.%d (typed buffer cursors)", Major, Minor, Patch)
}

// GetVersionInfo returns version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Major:    Major,
		Minor:    Minor,
		Release:  Patch,
		Describe: fmt.Sprintf("v%d.%d.%d", Major, Minor, Patch),
		Engines:  engine.Engines(),
	}
}
