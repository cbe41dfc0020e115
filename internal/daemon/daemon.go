// Package daemon detaches hyprshutdown from the terminal and session that
// started it.
//
// The classic double fork is expressed as two re-executions of the running
// binary, since forking a multithreaded Go runtime is unsafe. The stage a
// process image plays is carried in [StageEnv]:
//
//	original      (unset) -> spawns the intermediate, then exits 0
//	intermediate  (1)     -> setsid, ignore SIGHUP, spawns the daemon, exits 0
//	daemon        (2)     -> umask 0, continues with the real work
//
// The environment snapshot is applied to each spawned stage and restored again
// inside it. [Daemonizer.Daemonize] never exits the process itself; it returns
// a [Result] and the caller decides the exit status.
package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tools.zach/dev/hyprshutdown/internal/envsnap"
)

// StageEnv marks which detach stage a spawned process image is executing.
const StageEnv = "HYPRSHUTDOWN_DAEMON_STAGE"

// ErrUnknownStage is returned when [StageEnv] holds an unrecognized value.
var ErrUnknownStage = errors.New("unknown daemon stage")

// ///////////////////////////////////////////////
// Roles
// ///////////////////////////////////////////////

// Role is the part a process image plays in the detach sequence.
type Role int

const (
	// RoleOriginal is the process the user (or a keybind) started.
	RoleOriginal Role = iota
	// RoleIntermediate is the first spawned image; it becomes a session leader.
	RoleIntermediate
	// RoleDaemon is the second spawned image and the only one that survives.
	RoleDaemon
)

// String returns the lowercase role name used in logs.
func (r Role) String() string {
	switch r {
	case RoleOriginal:
		return "original"
	case RoleIntermediate:
		return "intermediate"
	case RoleDaemon:
		return "daemon"
	default:
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
}

// RoleFromEnv derives the current role from [StageEnv] as read by getenv.
func RoleFromEnv(getenv func(string) string) (Role, error) {
	switch v := getenv(StageEnv); v {
	case "":
		return RoleOriginal, nil
	case "1":
		return RoleIntermediate, nil
	case "2":
		return RoleDaemon, nil
	default:
		return RoleOriginal, fmt.Errorf("%w: %s=%q", ErrUnknownStage, StageEnv, v)
	}
}

// stageValue returns the [StageEnv] value that selects r in a spawned image.
func stageValue(r Role) string {
	return strconv.Itoa(int(r))
}

// ///////////////////////////////////////////////
// Result
// ///////////////////////////////////////////////

// Result tells the caller what the current process image should do next.
// A failed step is reported through the error return instead.
type Result int

const (
	// ChildContinues means this image is the detached daemon and should go on
	// to initialize state and run the UI.
	ChildContinues Result = iota
	// ParentShouldExit means this image handed off to a spawned stage and must
	// exit with success without touching anything else.
	ParentShouldExit
)

// String returns a readable name for logs.
func (r Result) String() string {
	if r == ParentShouldExit {
		return "parent-should-exit"
	}
	return "child-continues"
}

// ///////////////////////////////////////////////
// System
// ///////////////////////////////////////////////

// System is the set of process-level effects the protocol performs. [OS] is
// the real implementation; tests substitute a recorder.
type System interface {
	// Spawn starts another image of this binary with env and does not wait.
	Spawn(env []string) error
	// Setsid makes the calling process a session leader.
	Setsid() error
	// IgnoreHangup sets SIGHUP's disposition to ignore.
	IgnoreHangup()
	// Umask sets the file mode creation mask and returns the previous one.
	Umask(mask int) int
	// Environ returns the environment in KEY=value form.
	Environ() []string
	Getenv(key string) string
	Setenv(key, value string) error
	Unsetenv(key string) error
}

// ///////////////////////////////////////////////
// Daemonizer
// ///////////////////////////////////////////////

// Daemonizer runs the detach sequence against a [System].
type Daemonizer struct {
	sys System
	log *slog.Logger
}

// New creates a Daemonizer. A nil logger uses [slog.Default].
func New(sys System, log *slog.Logger) *Daemonizer {
	if log == nil {
		log = slog.Default()
	}
	return &Daemonizer{sys: sys, log: log}
}

// Role reports the role of the calling process image.
func (d *Daemonizer) Role() (Role, error) {
	return RoleFromEnv(d.sys.Getenv)
}

// Daemonize performs this image's share of the detach sequence. snap must have
// been captured before any stage was spawned. On error nothing further has
// been attempted and the caller should exit with failure.
func (d *Daemonizer) Daemonize(snap envsnap.Snapshot) (Result, error) {
	role, err := d.Role()
	if err != nil {
		return ChildContinues, err
	}
	log := d.log.With("role", role.String())

	switch role {
	case RoleOriginal:
		if err := d.spawn(snap, RoleIntermediate); err != nil {
			return ChildContinues, fmt.Errorf("first fork: %w", err)
		}
		log.Debug("spawned intermediate stage")
		return ParentShouldExit, nil

	case RoleIntermediate:
		if err := snap.RestoreTo(d.sys.Setenv); err != nil {
			return ChildContinues, fmt.Errorf("restore environment: %w", err)
		}
		if err := d.sys.Setsid(); err != nil {
			return ChildContinues, fmt.Errorf("setsid: %w", err)
		}
		d.sys.IgnoreHangup()
		if err := d.spawn(snap, RoleDaemon); err != nil {
			return ChildContinues, fmt.Errorf("second fork: %w", err)
		}
		log.Debug("new session created, spawned daemon stage")
		return ParentShouldExit, nil

	default:
		if err := snap.RestoreTo(d.sys.Setenv); err != nil {
			return ChildContinues, fmt.Errorf("restore environment: %w", err)
		}
		d.sys.IgnoreHangup()
		d.sys.Umask(0)
		if err := d.sys.Unsetenv(StageEnv); err != nil {
			return ChildContinues, fmt.Errorf("clear %s: %w", StageEnv, err)
		}
		log.Debug("detached")
		return ChildContinues, nil
	}
}

// spawn starts the next stage with the snapshot applied to the current
// environment and the stage marker set.
func (d *Daemonizer) spawn(snap envsnap.Snapshot, next Role) error {
	env := withStage(snap.Apply(d.sys.Environ()), next)
	return d.sys.Spawn(env)
}

// withStage returns env with any existing [StageEnv] entry replaced by the
// marker for r.
func withStage(env []string, r Role) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, StageEnv+"=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, StageEnv+"="+stageValue(r))
}
