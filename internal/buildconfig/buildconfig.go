package buildconfig

import "runtime"

// Build-time variables injected via ldflags:
//
//	go build -ldflags "-X github.com/Harshitk-cp/concord/internal/buildconfig.version=v0.3.0"
var (
	version = "dev"
	commit  = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}

func Current() Info {
	return Info{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
	}
}
