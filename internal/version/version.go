// Package version reports how the swatch binary was built.
//
// Release builds inject Version, Commit and Date with ldflags, for example:
//
//	-ldflags "-X github.com/jmylchreest/swatch/internal/version.Version=1.2.0"
//
// Builds without ldflags fall back to the VCS stamp the Go toolchain records.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

var (
	// Version is the semantic version of the application.
	Version = "dev"

	// Commit is the git commit hash of the build.
	Commit = unknown

	// Date is the build date in RFC3339 format.
	Date = unknown
)

// Info describes a build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build description, filling Commit and Date from the
// embedded VCS settings when ldflags did not set them.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == unknown:
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.Date == unknown:
				info.Date = s.Value
			}
		}
	}
	return info
}

// String returns the line printed by "swatch version".
func String() string {
	info := GetInfo()
	if info.Commit == unknown || info.Date == unknown {
		return fmt.Sprintf("swatch version %s (%s, %s)", info.Version, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("swatch version %s (commit: %s, built: %s, %s, %s)",
		info.Version, shortCommit(info.Commit), info.Date, info.GoVersion, info.Platform)
}

// Short returns the bare version, as used by --version and the User-Agent.
func Short() string {
	return Version
}

func shortCommit(c string) string {
	return c[:min(8, len(c))]
}
