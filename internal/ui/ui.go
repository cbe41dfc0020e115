// Package ui implements the shutdown interaction: it tells the user what is
// happening through Hyprland notifications, asks every open application to
// close, waits for them, ends the session and launches the post-exit command.
//
// The UI is headless. All feedback goes through the compositor's own
// notification overlay, so nothing here draws a surface that would itself have
// to be closed.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"tools.zach/dev/hyprshutdown/internal/hyprland"
	"tools.zach/dev/hyprshutdown/internal/logger"
	"tools.zach/dev/hyprshutdown/internal/postexit"
)

// ErrAppsRemaining is returned when applications are still open after the
// close timeout and force killing is disabled. The session is left running.
var ErrAppsRemaining = errors.New("applications still open")

// ///////////////////////////////////////////////
// Collaborators
// ///////////////////////////////////////////////

// IPC is the subset of [hyprland.Client] the UI uses.
type IPC interface {
	Clients(ctx context.Context) ([]hyprland.Window, error)
	CloseWindows(ctx context.Context, addresses []string) error
	KillWindows(ctx context.Context, addresses []string) error
	Notify(ctx context.Context, icon hyprland.Icon, dur time.Duration, color, msg string) error
	Exit(ctx context.Context) error
	Socket() string
}

// Source provides the compositor client and the dry-run flag. The shared
// shutdown state implements it.
type Source interface {
	IPC() (*hyprland.Client, error)
	DryRun() bool
}

// defaultPollInterval is used when Options.PollInterval is unset.
const defaultPollInterval = 250 * time.Millisecond

// Options holds the config-derived timings and filters.
type Options struct {
	// CloseTimeout bounds the wait for windows to close.
	CloseTimeout time.Duration
	// PollInterval is the delay between client list polls.
	PollInterval time.Duration
	// ExitTimeout bounds the wait for the compositor to exit. Zero skips it.
	ExitTimeout time.Duration
	// ForceKill kills leftover windows instead of aborting.
	ForceKill bool
	// NotifyColor is passed through to notifications.
	NotifyColor string
	// Ignore reports whether a window class must be left alone.
	Ignore func(class string) bool
}

// Settings are the per-run values chosen by the lifecycle driver.
type Settings struct {
	// NoExit skips the final exit dispatch.
	NoExit bool
	// ShutdownLabel is shown in the first notification.
	ShutdownLabel string
	// PostExitCmd is launched after the applications are gone, if set.
	PostExitCmd string
}

// ///////////////////////////////////////////////
// UI
// ///////////////////////////////////////////////

// UI runs one shutdown.
type UI struct {
	Settings

	// dryRun comes from the shared state.
	dryRun bool
	// ipc talks to the compositor.
	ipc IPC
	// opts holds timings and filters.
	opts Options
	// log receives progress messages.
	log *slog.Logger
	// launch starts the post-exit command.
	launch postexit.Launcher
	// waitGone waits for the compositor socket to disappear.
	waitGone func(ctx context.Context, socket string, timeout time.Duration) error
}

// New builds a UI bound to an initialized state.
func New(src Source, opts Options, log *slog.Logger) (*UI, error) {
	ipc, err := src.IPC()
	if err != nil {
		return nil, err
	}
	return newUI(ipc, src.DryRun(), opts, log), nil
}

// newUI builds a UI around any IPC implementation.
func newUI(ipc IPC, dryRun bool, opts Options, log *slog.Logger) *UI {
	if log == nil {
		log = slog.Default()
	}
	if opts.Ignore == nil {
		opts.Ignore = func(string) bool { return false }
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &UI{
		dryRun:   dryRun,
		ipc:      ipc,
		opts:     opts,
		log:      log,
		launch:   postexit.Detach,
		waitGone: hyprland.WaitGone,
	}
}

// Configure applies the driver's per-run settings.
func (u *UI) Configure(s Settings) {
	u.Settings = s
}

// Run performs the shutdown and blocks until it is finished.
func (u *UI) Run(ctx context.Context) error {
	u.notify(ctx, hyprland.IconInfo, u.ShutdownLabel)

	targets, err := u.targets(ctx)
	if err != nil {
		return err
	}

	if u.dryRun {
		for _, w := range targets {
			u.log.Info("dry run: would close", "class", w.Class, "title", w.Title, "address", w.Address)
		}
		u.notify(ctx, hyprland.IconHint, fmt.Sprintf("Dry run: would close %s", plural(len(targets), "app")))
		return nil
	}

	if len(targets) > 0 {
		u.log.Info("closing applications", "count", len(targets))
		if err := u.ipc.CloseWindows(ctx, addresses(targets)); err != nil {
			return fmt.Errorf("close windows: %w", err)
		}
		if err := u.awaitClosed(ctx, targets); err != nil {
			return err
		}
	}

	if !u.NoExit {
		if err := u.exit(ctx); err != nil {
			return err
		}
	}

	if u.PostExitCmd != "" {
		u.launch(u.PostExitCmd)
	}
	return nil
}

// targets lists the windows to close, skipping ignored classes.
func (u *UI) targets(ctx context.Context) ([]hyprland.Window, error) {
	all, err := u.ipc.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	out := make([]hyprland.Window, 0, len(all))
	for _, w := range all {
		if u.opts.Ignore(w.Class) {
			logger.Trace(u.log, "ignoring window", "class", w.Class, "address", w.Address)
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// awaitClosed polls until every target is gone or the close timeout expires.
// Leftovers are killed when ForceKill is set; otherwise the shutdown aborts.
func (u *UI) awaitClosed(ctx context.Context, targets []hyprland.Window) error {
	remaining, err := u.poll(ctx, targets)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		u.log.Info("all applications closed")
		return nil
	}

	names := classes(remaining)
	if u.opts.ForceKill {
		u.log.Warn("killing applications that did not close", "count", len(remaining), "classes", names)
		if err := u.ipc.KillWindows(ctx, addresses(remaining)); err != nil {
			return fmt.Errorf("kill windows: %w", err)
		}
		return nil
	}

	u.notify(ctx, hyprland.IconError, fmt.Sprintf("%s did not close: %s", plural(len(remaining), "app"), names))
	return fmt.Errorf("%w: %s", ErrAppsRemaining, names)
}

// poll re-reads the client list until none of targets is present or the
// close timeout expires, and returns the targets still open.
func (u *UI) poll(ctx context.Context, targets []hyprland.Window) ([]hyprland.Window, error) {
	deadline := time.Now().Add(u.opts.CloseTimeout)
	ticker := time.NewTicker(u.opts.PollInterval)
	defer ticker.Stop()

	remaining := targets
	for {
		current, err := u.ipc.Clients(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clients: %w", err)
		}
		remaining = stillOpen(remaining, current)
		if len(remaining) == 0 || !time.Now().Before(deadline) {
			return remaining, nil
		}
		logger.Trace(u.log, "waiting for applications", "remaining", len(remaining))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// exit ends the session and waits for the compositor socket to go away.
// A slow compositor is logged, not treated as a failure.
func (u *UI) exit(ctx context.Context) error {
	socket := u.ipc.Socket()
	u.log.Info("exiting hyprland")
	if err := u.ipc.Exit(ctx); err != nil {
		return fmt.Errorf("exit hyprland: %w", err)
	}
	if u.opts.ExitTimeout <= 0 || socket == "" {
		return nil
	}
	if err := u.waitGone(ctx, socket, u.opts.ExitTimeout); err != nil {
		u.log.Warn("hyprland still running after exit", "error", err)
	}
	return nil
}

// notify shows msg; failures only reach the log.
func (u *UI) notify(ctx context.Context, icon hyprland.Icon, msg string) {
	dur := u.opts.CloseTimeout
	if dur <= 0 {
		dur = 5 * time.Second
	}
	if err := u.ipc.Notify(ctx, icon, dur, u.opts.NotifyColor, msg); err != nil {
		u.log.Warn("notification failed", "error", err)
	}
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// stillOpen returns the members of targets whose address is in current.
func stillOpen(targets, current []hyprland.Window) []hyprland.Window {
	open := make(map[string]bool, len(current))
	for _, w := range current {
		open[w.Address] = true
	}
	var out []hyprland.Window
	for _, w := range targets {
		if open[w.Address] {
			out = append(out, w)
		}
	}
	return out
}

// addresses extracts window addresses.
func addresses(ws []hyprland.Window) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Address
	}
	return out
}

// classes returns the sorted, de-duplicated classes of ws joined by ", ".
func classes(ws []hyprland.Window) string {
	seen := map[string]bool{}
	var names []string
	for _, w := range ws {
		name := w.Class
		if name == "" {
			name = w.Title
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// plural formats n with a noun, adding "s" when n != 1.
func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
