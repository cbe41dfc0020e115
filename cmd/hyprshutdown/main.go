// Package main implements hyprshutdown, which closes every application in a
// Hyprland session, ends the session and optionally switches to a virtual
// terminal afterwards.
package main

import (
	"os"
	"runtime/debug"

	rootpkg "tools.zach/dev/hyprshutdown"
	"tools.zach/dev/hyprshutdown/internal/lifecycle"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - bare go build: left as "dev" and resolved from the embedded VCS info
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the VCS revision and dirty state
// embedded by the Go toolchain produce a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	deps := lifecycle.DefaultDeps(resolveVersion(), rootpkg.DefaultConfigTOML)
	os.Exit(lifecycle.New(deps).Run(os.Args[1:]))
}
