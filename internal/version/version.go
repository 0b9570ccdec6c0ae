package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Version is the current semantic version of semdiff
const Version = "0.3.0"

// Set at build time with -ldflags "-X github.com/jmcder000/semantic-diff/internal/version.GitCommit=..."
var (
	BuildDate = "development"
	GitCommit = "unknown"
)

// FullInfo returns detailed version information
func FullInfo() string {
	return "semdiff " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ", " + runtime.Version() + ")"
}

var (
	buildID     string
	buildIDOnce sync.Once
)

// BuildID returns a fingerprint of the current binary build, so a client
// can tell when a running server comes from a different build.
func BuildID() string {
	buildIDOnce.Do(func() {
		buildID = computeBuildID()
	})
	return buildID
}

func computeBuildID() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version + "-" + GitCommit
	}

	h := xxhash.New()
	_, _ = h.WriteString(info.GoVersion)
	_, _ = h.WriteString(info.Main.Path)
	_, _ = h.WriteString(info.Main.Version)

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision", "vcs.modified", "vcs.time":
			_, _ = h.WriteString(s.Key)
			_, _ = h.WriteString(s.Value)
		}
	}

	return fmt.Sprintf("%016x", h.Sum64())
}
