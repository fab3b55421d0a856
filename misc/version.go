// Package misc holds program identity, set at build time.
package misc

import (
	"runtime/debug"
)

// Set with -ldflags "-X svgcore/misc.version=... -X svgcore/misc.gitHash=..."
var (
	version = "dev"
	gitHash = ""
)

const appName = "svgcss"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit program was built from, falling back to VCS
// information embedded by the go tool.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
