package version

import "fmt"

// Semantic version components
const (
	Maj = 0
	Min = 1
	Fix = 0
)

// Flag contains extra info about the version. It is helpul for tracking
// versions while developing. It should always be empty on the master branch.
const Flag = ""

var (
	// Version is the full version string
	Version = fmt.Sprintf("%d.%d.%d", Maj, Min, Fix)

	// GitCommit is set with --ldflags "-X github.com/mosaicnetworks/gossipledger/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	Version = fullVersion(Version, Flag, GitCommit)
}

func fullVersion(base, flag, commit string) string {
	if flag != "" {
		base += "-" + flag
	}

	if len(commit) >= 8 {
		base += "-" + commit[:8]
	}

	return base
}
