// version/version.go
package version

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/dalemusser/mailcheck/httputil"
	"github.com/go-chi/chi/v5"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/dalemusser/mailcheck/pantry/version.Version=1.0.0 \
//	                   -X github.com/dalemusser/mailcheck/pantry/version.Commit=abc123"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build information of the running binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// String renders the one-line form printed by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s/%s)", i.Version, i.Commit, i.BuildTime, i.GoVersion, i.OS, i.Arch)
}

// Mount attaches GET /version.
func Mount(r chi.Router) {
	info := Get()
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, info)
	})
}
