package version

const Maj = "0"
const Min = "2"
const Fix = "1"

// Flag contains extra info about the version. It should always be empty on
// the master branch; TestFlagEmpty enforces this.
const Flag = ""

var (
	// The full version string
	Version = "0.2.1"

	// GitCommit is set with --ldflags "-X github.com/csnode/corenode/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit[:8]
	}
}
