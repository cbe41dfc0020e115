// Unix process primitives for the detach sequence: re-exec of the running
// binary, setsid(2), umask(2) and SIGHUP disposition.

//go:build !windows

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// ///////////////////////////////////////////////
// Hangup
// ///////////////////////////////////////////////

// IgnoreHangup sets the process-wide SIGHUP disposition to ignore. The
// disposition survives exec, so spawned stages start with it already ignored.
func IgnoreHangup() {
	signal.Ignore(syscall.SIGHUP)
}

// ///////////////////////////////////////////////
// OS
// ///////////////////////////////////////////////

// OS is the real [System]. Executable and Args describe the image to spawn;
// [NewOS] fills them from the running process.
type OS struct {
	// Executable is the absolute path of the binary to re-execute.
	Executable string
	// Args are the arguments passed to the spawned image, without argv[0].
	Args []string
}

// NewOS returns an OS that re-executes the running binary with its original
// arguments.
func NewOS() (*OS, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable path: %w", err)
	}
	return &OS{Executable: exe, Args: os.Args[1:]}, nil
}

// Spawn starts the binary with env and stdio on /dev/null, then releases the
// process so no wait handle is kept.
func (o *OS) Spawn(env []string) error {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(o.Executable, o.Args...)
	cmd.Env = env
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", o.Executable, err)
	}
	return cmd.Process.Release()
}

// Setsid calls setsid(2).
func (o *OS) Setsid() error {
	_, err := unix.Setsid()
	return err
}

// IgnoreHangup calls the package-level [IgnoreHangup].
func (o *OS) IgnoreHangup() { IgnoreHangup() }

// Umask calls umask(2).
func (o *OS) Umask(mask int) int { return unix.Umask(mask) }

// Environ returns [os.Environ].
func (o *OS) Environ() []string { return os.Environ() }

// Getenv returns [os.Getenv].
func (o *OS) Getenv(key string) string { return os.Getenv(key) }

// Setenv calls [os.Setenv].
func (o *OS) Setenv(key, value string) error { return os.Setenv(key, value) }

// Unsetenv calls [os.Unsetenv].
func (o *OS) Unsetenv(key string) error { return os.Unsetenv(key) }
