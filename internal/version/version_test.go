package version

import (
	"strings"
	"testing"
)

func TestInfoContainsVersion(t *testing.T) {
	info := Info()
	if !strings.Contains(info, Short()) {
		t.Errorf("Info() = %q, want it to contain %q", info, Short())
	}
	if !strings.Contains(info, "commit:") {
		t.Errorf("Info() = %q, missing commit line", info)
	}
}
