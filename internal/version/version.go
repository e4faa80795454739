// Package version holds build information injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/version.Version=v1.2.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Short returns the version number.
func Short() string {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return Version
}

// Info returns multi-line build information.
func Info() string {
	return fmt.Sprintf("lxassist %s\n  commit:     %s\n  built:      %s\n  go version: %s %s/%s",
		Short(), GitCommit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
