// Package version carries the build identity stamped into the codecbridge
// binary at link time.
package version

import (
	"fmt"
	"runtime"
)

// Product is the binary's name as reported over the API.
const Product = "codecbridge"

// Stamped by the release build, e.g.:
//
//	go build -ldflags "-X github.com/smazurov/codecbridge/internal/version.Version=v1.2.0"
//
// A plain `go build` leaves the defaults in place.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	BuildID   = "unknown"
)

// Info is the full build identity served by the version endpoint.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get assembles the identity of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the bare version, suitable for API metadata and logs.
func String() string {
	return Version
}
