// Package version carries build metadata stamped in with -ldflags.
package version

import "runtime"

// Name is the program name shown in help and version output.
const Name = "cadence"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Short is the name and version only.
func Short() string {
	return Name + " " + Version
}

func String() string {
	return Short() + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
