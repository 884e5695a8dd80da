// Package misc holds build related program information.
package misc

import "runtime/debug"

// set with -ldflags "-X colorado/misc.version=... -X colorado/misc.hash=..."
var (
	version = "dev"
	hash    string
	appName = "colorado"
)

func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns commit the program was built from, taken from build
// information when not set at link time.
func GetGitHash() string {
	if len(hash) > 0 {
		return hash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
