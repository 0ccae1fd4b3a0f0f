// Package version holds build information injected at link time via
// -ldflags "-X github.com/creativecloner/cloner/version.GitRelease=...".
package version

import "runtime"

var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GoInfo        = runtime.Version()
)
