// Package version reports the build version of sttd. Version, GitCommit and
// BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/sttkit/version.Version=1.2.0" ./cmd/sttd
//
// Unset values fall back to the VCS stamp Go embeds in the binary.
package version

import (
	"runtime/debug"
	"sync"
)

var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the resolved build information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

var (
	once     sync.Once
	resolved Info
)

// Get returns the build information, resolved once per process.
func Get() Info {
	once.Do(func() { resolved = resolve(Version, GitCommit, BuildTime, readBuildInfo) })
	return resolved
}

// String returns "version" or "version-commit".
func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		s += "-" + i.GitCommit
	}
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

func readBuildInfo() (*debug.BuildInfo, bool) { return debug.ReadBuildInfo() }

func resolve(version, commit, built string, read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Version: version, GitCommit: commit, BuildTime: built}
	bi, ok := read()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}
