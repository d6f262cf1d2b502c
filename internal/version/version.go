// Package version exposes build metadata stamped at link time.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags, for example:
//
//	go build -ldflags "-X github.com/umbralabs/umbra/internal/version.Version=1.2.0"
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git revision the binary was built from.
	Commit = "unknown"

	// BuildTime is the build timestamp in RFC 3339 form.
	BuildTime = "unknown"
)

// Info bundles the build metadata reported by the version command and
// the health endpoint.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty,omitempty"`
}

// Current resolves the build metadata, falling back to the module's
// debug build info when the ldflags variables were not stamped.
func Current() Info {
	return Info{
		Version:   resolveVersion(),
		Commit:    resolveCommit(),
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Dirty:     isDirty(),
	}
}

// Short returns a one-line version string suitable for log lines and
// the health endpoint.
func Short() string {
	v := resolveVersion()
	commit := resolveCommit()
	if commit == "unknown" || len(commit) < 7 {
		return v
	}
	if v == "dev" {
		return fmt.Sprintf("dev-%s", commit[:7])
	}
	return fmt.Sprintf("%s (%s)", v, commit[:7])
}

// Detailed returns a multi-line description of the build for the
// version command.
func Detailed() string {
	info := Current()

	parts := []string{fmt.Sprintf("Version:  %s", info.Version)}
	if info.Commit != "unknown" {
		commit := info.Commit
		if info.Dirty {
			commit += " (dirty)"
		}
		parts = append(parts, fmt.Sprintf("Commit:   %s", commit))
	}
	if !info.BuildTime.IsZero() {
		parts = append(parts, fmt.Sprintf("Built:    %s", info.BuildTime.Format(time.RFC3339)))
	}
	parts = append(parts,
		fmt.Sprintf("Go:       %s", info.GoVersion),
		fmt.Sprintf("Platform: %s", info.Platform),
	)
	return strings.Join(parts, "\n")
}

func resolveVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

func resolveCommit() string {
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return "unknown"
}

func isDirty() bool {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.modified" {
				return setting.Value == "true"
			}
		}
	}
	return false
}

func parseBuildTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
