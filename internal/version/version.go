// Package version reports the build the binary came from. Release builds set
// the variables at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/contextfocus/internal/version.Version=v0.3.0"
//
// Other builds fall back to the VCS stamp the go tool embeds.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(info)
	}
}

// fillFromBuildInfo only replaces values the linker left at their defaults.
func fillFromBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && GitCommit == "unknown" && s.Value != "":
			GitCommit = s.Value
			if len(GitCommit) > 12 {
				GitCommit = GitCommit[:12]
			}
		case s.Key == "vcs.time" && BuildTime == "unknown" && s.Value != "":
			BuildTime = s.Value
		}
	}
}

// String is the banner printed by --version.
func String() string {
	return fmt.Sprintf("contextfocus %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
