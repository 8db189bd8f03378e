// Package buildinfo exposes the version stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/dmehra2102/sofa-storefront/pkg/buildinfo.Version=1.4.0"
package buildinfo

import (
	"net/http"
	"runtime"

	"github.com/Masterminds/semver/v3"

	"github.com/dmehra2102/sofa-storefront/pkg/httpx"
)

var (
	Version = "0.1.0-dev"
	Commit  = "unknown"
)

type Info struct {
	Service    string `json:"service"`
	Version    string `json:"version"`
	Major      uint64 `json:"major"`
	Minor      uint64 `json:"minor"`
	Patch      uint64 `json:"patch"`
	Prerelease string `json:"prerelease,omitempty"`
	Commit     string `json:"commit"`
	GoVersion  string `json:"goVersion"`
}

// Get parses the stamped version. A malformed version is reported as an
// error so the binary refuses to start with it.
func Get(service string) (Info, error) {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Service:    service,
		Version:    v.String(),
		Major:      v.Major(),
		Minor:      v.Minor(),
		Patch:      v.Patch(),
		Prerelease: v.Prerelease(),
		Commit:     Commit,
		GoVersion:  runtime.Version(),
	}, nil
}

func Handler(info Info) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, info)
	}
}
