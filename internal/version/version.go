package version

import (
	"strings"

	"github.com/fatih/color"
)

// Version information for the cxxsema CLI.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Plain is the version with the commit appended as build metadata. It is
// part of every analysis cache key.
func Plain() string {
	v := strings.TrimSpace(Version)
	if c := strings.TrimSpace(GitCommit); c != "" {
		v += "+" + c
	}
	return v
}

// Colored renders major, minor and patch in distinct colors.
func Colored() string {
	core, suffix, _ := strings.Cut(strings.TrimSpace(Version), "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := color.New(color.FgYellow, color.Bold).Sprint(parts[0]) + "." +
		color.New(color.FgGreen, color.Bold).Sprint(parts[1]) + "." +
		color.New(color.FgBlue, color.Bold).Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}
