// Package version holds the aigitcommit version string. Release builds set it with
//
//	go build -ldflags "-X aigitcommit/cli/internal/version.Version=v1.0.0"
//
// Dev builds fall back to the VCS revision recorded by the Go toolchain.
package version

import "runtime/debug"

// Version is the release version; "dev" for local builds.
var Version = "dev"

// Commit is the short commit hash; empty means "read it from build info".
var Commit = ""

// String returns "v1.2.3" for releases and "dev (abc1234)" for dev builds
// whose revision is known.
func String() string {
	if Version != "dev" {
		return Version
	}
	c := Commit
	if c == "" {
		c = buildRevision(debug.ReadBuildInfo)
	}
	if c == "" {
		return Version
	}
	return Version + " (" + c + ")"
}

// buildRevision returns the 7-char vcs.revision, with a "+dirty" suffix when
// the tree had local modifications.
func buildRevision(read func() (*debug.BuildInfo, bool)) string {
	info, ok := read()
	if !ok || info == nil {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && dirty {
		rev += "+dirty"
	}
	return rev
}
