// Package state holds the shared shutdown state: the dry-run flag, the
// single-instance lock for one compositor and the Hyprland IPC client.
//
// A [State] is built once by the lifecycle driver and handed to the UI. It is
// not a process-wide singleton.
package state

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"tools.zach/dev/hyprshutdown/internal/hyprland"
	"tools.zach/dev/hyprshutdown/internal/paths"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrAlreadyRunning is returned by [State.Init] when another orchestrator
// holds the lock for the same compositor instance.
var ErrAlreadyRunning = errors.New("another hyprshutdown is already running for this instance")

// ErrNotInitialized is returned when the IPC client is requested before a
// successful [State.Init].
var ErrNotInitialized = errors.New("state not initialized")

// ///////////////////////////////////////////////
// State
// ///////////////////////////////////////////////

// Dialer opens an IPC client for a compositor instance.
type Dialer func(inst paths.Instance, log *slog.Logger) (*hyprland.Client, error)

// State is the shared shutdown state.
type State struct {
	// dryRun suppresses every destructive action downstream.
	dryRun bool

	// inst identifies the compositor being shut down, set by Init.
	inst paths.Instance
	// log receives state lifecycle messages.
	log *slog.Logger
	// dial opens the IPC client; replaceable in tests.
	dial Dialer

	// lock holds the flock for the lifetime of the state.
	lock *os.File
	// token proves ownership of the lock file contents.
	token string
	// ipc is the compositor client, set by Init.
	ipc *hyprland.Client
	// version is the compositor version reported during Init.
	version *hyprland.VersionInfo
}

// New creates an uninitialized State.
func New(log *slog.Logger) *State {
	if log == nil {
		log = slog.Default()
	}
	return &State{log: log, dial: hyprland.Dial}
}

// SetDryRun marks the shutdown as a dry run. It may be called before Init.
func (s *State) SetDryRun(v bool) {
	s.dryRun = v
}

// DryRun reports whether destructive actions are suppressed.
func (s *State) DryRun() bool {
	return s.dryRun
}

// Instance returns the compositor instance passed to Init.
func (s *State) Instance() paths.Instance {
	return s.inst
}

// Init binds the state to inst, acquires the single-instance lock, connects
// to the compositor and checks that it answers. On failure nothing is left
// held.
func (s *State) Init(ctx context.Context, inst paths.Instance) error {
	if s.ipc != nil {
		return nil
	}

	token := lockToken()
	f, err := acquire(inst.Lock(), token)
	if err != nil {
		return err
	}

	ipc, err := s.dial(inst, s.log)
	if err != nil {
		release(inst.Lock(), token, f)
		return fmt.Errorf("connect to hyprland: %w", err)
	}

	v, err := ipc.Version(ctx)
	if err != nil {
		release(inst.Lock(), token, f)
		return fmt.Errorf("query hyprland version: %w", err)
	}

	s.inst, s.lock, s.token, s.ipc, s.version = inst, f, token, ipc, v
	s.log.Info("state initialized",
		"dry_run", s.dryRun,
		"socket", ipc.Socket(),
		"hyprland", v.Tag,
		"commit", v.Commit,
	)
	return nil
}

// Initialized reports whether Init has succeeded.
func (s *State) Initialized() bool {
	return s.ipc != nil
}

// IPC returns the compositor client.
func (s *State) IPC() (*hyprland.Client, error) {
	if s.ipc == nil {
		return nil, ErrNotInitialized
	}
	return s.ipc, nil
}

// Version returns the compositor version seen during Init, or nil.
func (s *State) Version() *hyprland.VersionInfo {
	return s.version
}

// Close releases the lock and closes the IPC client. It is safe to call on an
// uninitialized state and more than once.
func (s *State) Close() error {
	var err error
	if s.ipc != nil {
		err = s.ipc.Close()
		s.ipc = nil
	}
	if s.lock != nil {
		release(s.inst.Lock(), s.token, s.lock)
		s.lock = nil
	}
	return err
}

// ///////////////////////////////////////////////
// Lock File
// ///////////////////////////////////////////////

// lockToken generates a random 16-character hex token used to prove ownership
// of the lock file, so [release] only deletes the file if this state wrote it.
func lockToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// acquire opens the lock file at path, takes the advisory lock and writes
// "PID:TOKEN". The returned file must stay open to keep the lock.
func acquire(path, token string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if isContended(err) {
			if pid := holderPID(path); pid > 0 {
				return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
			}
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	content := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if _, err := f.WriteString(content); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return f, nil
}

// release unlocks and closes f, then removes the lock file only if it still
// carries token.
func release(path, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) == 2 && parts[1] == token {
		os.Remove(path)
	}
}

// holderPID reads the PID recorded in the lock file, or 0.
func holderPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.SplitN(string(data), ":", 2)[0])
	if err != nil {
		return 0
	}
	return pid
}
