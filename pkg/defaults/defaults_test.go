package defaults

import (
	"regexp"
	"strings"
	"testing"
)

func TestVersionIsSemver(t *testing.T) {
	semverPattern := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9]+)?$`)
	if !semverPattern.MatchString(Version) {
		t.Errorf("Version (%s) is not valid semver", Version)
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(""); got != UAMinimal {
		t.Errorf("UserAgent(\"\") = %q, want %q", got, UAMinimal)
	}
	got := UserAgent("cli")
	if !strings.HasPrefix(got, ToolName+"/"+Version) || !strings.HasSuffix(got, "(cli)") {
		t.Errorf("UserAgent(\"cli\") = %q", got)
	}
}

func TestExitCodesDistinct(t *testing.T) {
	seen := map[int]string{}
	for name, code := range map[string]int{
		"ExitSuccess":       ExitSuccess,
		"ExitNetworkError":  ExitNetworkError,
		"ExitUserError":     ExitUserError,
		"ExitInternalError": ExitInternalError,
	} {
		if other, ok := seen[code]; ok {
			t.Errorf("%s and %s share exit code %d", name, other, code)
		}
		seen[code] = name
	}
}
