// Package version exposes build information for the bridge binary.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is overridable with ldflags at build time.
	Version = "dev"
	// CommitHash is the git revision, overridable with ldflags.
	CommitHash = ""
)

// String returns "version (shorthash)" with the hash taken from build
// info when ldflags did not set one.
func String() string {
	if CommitHash == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					CommitHash = setting.Value
				}
			}
		}
	}
	if CommitHash == "" {
		return Version
	}
	short := CommitHash
	if len(short) > 7 {
		short = short[:7]
	}
	return fmt.Sprintf("%s (%s)", Version, short)
}
