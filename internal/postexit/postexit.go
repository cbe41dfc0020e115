// Package postexit launches commands that must outlive hyprshutdown itself,
// such as the virtual terminal switch run after the compositor has exited.
//
// Launches are fire-and-forget: [Detach] returns as soon as the child has been
// started and exposes no handle to wait on. A launch that fails to start is
// logged and otherwise ignored; it never changes hyprshutdown's exit status.
package postexit

import (
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// Shell is the interpreter used for launched command strings.
const Shell = "/bin/sh"

// ///////////////////////////////////////////////
// Launcher
// ///////////////////////////////////////////////

// Launcher starts a shell command string in the background. It has no return
// value on purpose.
type Launcher func(shellCmd string)

// starter starts cmd; replaced in tests.
var starter = func(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Detach runs shellCmd through [Shell] in a new session with stdio on
// /dev/null and returns without waiting.
func Detach(shellCmd string) {
	cmd := exec.Command(Shell, "-c", shellCmd)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0); err == nil {
		defer devNull.Close()
		cmd.Stdin = devNull
		cmd.Stdout = devNull
		cmd.Stderr = devNull
	}

	if err := starter(cmd); err != nil {
		slog.Warn("post-exit command failed to start", "cmd", shellCmd, "error", err)
		return
	}
	slog.Debug("post-exit command launched", "cmd", shellCmd)
}

// ///////////////////////////////////////////////
// VT Switch
// ///////////////////////////////////////////////

// Command returns the shell command that switches to virtual terminal vt
// through non-interactive sudo.
func Command(vt int) string {
	return "sudo -n chvt " + strconv.Itoa(vt)
}

// SwitchVT launches the VT switch for vt through [Detach].
func SwitchVT(vt int) {
	SwitchVTWith(Detach, vt)
}

// SwitchVTWith launches the VT switch for vt through launch.
func SwitchVTWith(launch Launcher, vt int) {
	slog.Debug("switching virtual terminal", "vt", vt)
	launch(Command(vt))
}
