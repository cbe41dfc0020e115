// Package paths centralizes file and directory names used across the project.
// All config, log, lock and Hyprland socket names are defined here as the
// single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// File and directory names.
const (
	BinaryName = "hyprshutdown"
	ConfigFile = "hyprshutdown.toml"
	LogFile    = "hyprshutdown.log"
	LockPrefix = "hyprshutdown."
	LockExt    = ".lock"
)

// XDG fallbacks, relative to $HOME.
const (
	ConfigDirRel = ".config"
	StateDirRel  = ".local/state"
)

// Hyprland runtime layout. The instance directory lives under
// $XDG_RUNTIME_DIR/hypr on current releases and under /tmp/hypr on older ones.
const (
	HyprDir          = "hypr"
	SocketFile       = ".socket.sock"
	LegacyRuntimeDir = "/tmp"
)

// ///////////////////////////////////////////////
// Dirs
// ///////////////////////////////////////////////

// Dirs holds the resolved per-user config and state directories.
type Dirs struct {
	// ConfigRoot is the XDG config home, e.g. ~/.config.
	ConfigRoot string
	// StateRoot is the XDG state home, e.g. ~/.local/state.
	StateRoot string
}

// ResolveDirs builds [Dirs] from XDG_CONFIG_HOME and XDG_STATE_HOME, falling
// back to the XDG defaults under home. A nil getenv reads the process env.
func ResolveDirs(getenv func(string) string, home string) Dirs {
	if getenv == nil {
		getenv = os.Getenv
	}
	d := Dirs{
		ConfigRoot: getenv("XDG_CONFIG_HOME"),
		StateRoot:  getenv("XDG_STATE_HOME"),
	}
	if d.ConfigRoot == "" {
		d.ConfigRoot = filepath.Join(home, ConfigDirRel)
	}
	if d.StateRoot == "" {
		d.StateRoot = filepath.Join(home, StateDirRel)
	}
	return d
}

// Config returns the full path to the config file.
func (d Dirs) Config() string { return filepath.Join(d.ConfigRoot, HyprDir, ConfigFile) }

// LogDir returns the directory holding the log file.
func (d Dirs) LogDir() string { return filepath.Join(d.StateRoot, BinaryName) }

// Log returns the full path to the log file.
func (d Dirs) Log() string { return filepath.Join(d.LogDir(), LogFile) }

// ///////////////////////////////////////////////
// Instance
// ///////////////////////////////////////////////

// Instance identifies one running Hyprland compositor.
type Instance struct {
	// RuntimeDir is $XDG_RUNTIME_DIR; may be empty on minimal setups.
	RuntimeDir string
	// Signature is $HYPRLAND_INSTANCE_SIGNATURE.
	Signature string
}

// Dir returns the instance directory under the runtime dir.
func (i Instance) Dir() string { return filepath.Join(i.RuntimeDir, HyprDir, i.Signature) }

// Socket returns the request socket path under the runtime dir.
func (i Instance) Socket() string { return filepath.Join(i.Dir(), SocketFile) }

// LegacyDir returns the pre-0.40 instance directory under /tmp.
func (i Instance) LegacyDir() string {
	return filepath.Join(LegacyRuntimeDir, HyprDir, i.Signature)
}

// LegacySocket returns the pre-0.40 request socket path.
func (i Instance) LegacySocket() string { return filepath.Join(i.LegacyDir(), SocketFile) }

// SocketCandidates returns the request socket paths to probe, preferred first.
// The runtime dir location is skipped when RuntimeDir is unset.
func (i Instance) SocketCandidates() []string {
	var out []string
	if i.RuntimeDir != "" {
		out = append(out, i.Socket())
	}
	return append(out, i.LegacySocket())
}

// Lock returns the single-instance lock file path for this compositor.
// Falls back to [os.TempDir] when RuntimeDir is unset.
func (i Instance) Lock() string {
	dir := i.RuntimeDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, LockPrefix+i.Signature+LockExt)
}
