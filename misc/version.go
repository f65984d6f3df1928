// Package misc keeps program identity: name, version and VCS revision.
package misc

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const appName = "mpo"

// set by linker: -X github.com/heyleao/mp-mods-ets2/misc.version=...
var (
	version = "dev"
	githash = ""
)

// GetAppName returns executable name without extension, falling back to the
// build time name when it cannot be determined.
func GetAppName() string {
	exe, err := os.Executable()
	if err != nil {
		return appName
	}
	base := strings.TrimSuffix(filepath.Base(exe), ".exe")
	if strings.HasSuffix(base, ".test") {
		// running under "go test"
		return appName
	}
	return base
}

func GetVersion() string {
	return version
}

// GetGitHash returns revision set by linker or recorded by go build.
func GetGitHash() string {
	if len(githash) > 0 {
		return githash
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
