package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestPlainAppendsCommit(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version, GitCommit = "1.2.3", ""
	if got := Plain(); got != "1.2.3" {
		t.Fatalf("Plain() = %q, want %q", got, "1.2.3")
	}
	GitCommit = "abc123"
	if got := Plain(); got != "1.2.3+abc123" {
		t.Fatalf("Plain() = %q, want %q", got, "1.2.3+abc123")
	}
}

func TestColoredWithoutColorIsVersion(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = origVersion, origNoColor }()
	color.NoColor = true

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.0.0-beta.1", "weird"} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}
