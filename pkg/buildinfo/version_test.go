package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplate(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	if got := Template(); !strings.Contains(got, "version v1.2.3") {
		t.Errorf("Template() = %q, want version v1.2.3", got)
	}
	if got := UserAgent(); !strings.HasPrefix(got, "reqtrace/v1.2.3 ") {
		t.Errorf("UserAgent() = %q", got)
	}
}
