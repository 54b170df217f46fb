package version

import (
	"runtime/debug"
	"testing"
)

func TestString(t *testing.T) {
	// Save and restore globals so tests don't affect each other.
	savedVersion, savedCommit := Version, Commit
	defer func() { Version, Commit = savedVersion, savedCommit }()

	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"dev with commit", "dev", "abc1234", "dev (abc1234)"},
		{"release ignores commit", "v1.0.0", "abc1234", "v1.0.0"},
		{"release no commit", "v1.0.0", "", "v1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit = tt.version, tt.commit
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildRevision(t *testing.T) {
	t.Parallel()
	info := func(settings ...debug.BuildSetting) func() (*debug.BuildInfo, bool) {
		return func() (*debug.BuildInfo, bool) { return &debug.BuildInfo{Settings: settings}, true }
	}
	tests := []struct {
		name string
		read func() (*debug.BuildInfo, bool)
		want string
	}{
		{"no build info", func() (*debug.BuildInfo, bool) { return nil, false }, ""},
		{"no vcs settings", info(), ""},
		{"clean", info(debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"}), "0123456"},
		{"dirty", info(
			debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"},
			debug.BuildSetting{Key: "vcs.modified", Value: "true"},
		), "0123456+dirty"},
		{"short revision", info(debug.BuildSetting{Key: "vcs.revision", Value: "abc"}), "abc"},
	}
	for _, tt := range tests {
		if got := buildRevision(tt.read); got != tt.want {
			t.Errorf("%s: buildRevision = %q, want %q", tt.name, got, tt.want)
		}
	}
}
