// Package lifecycle drives one hyprshutdown run from the command line to the
// process exit status.
//
// The driver resolves the configuration, checks that it runs inside a
// Hyprland session, detaches (or stays in the foreground with SIGHUP
// ignored), initializes the shared state, hands off to the shutdown UI and
// finally launches the VT switch. Every step gates the next, and the exit
// status is decided here and nowhere else.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"tools.zach/dev/hyprshutdown/internal/config"
	"tools.zach/dev/hyprshutdown/internal/daemon"
	"tools.zach/dev/hyprshutdown/internal/envsnap"
	"tools.zach/dev/hyprshutdown/internal/logger"
	"tools.zach/dev/hyprshutdown/internal/paths"
	"tools.zach/dev/hyprshutdown/internal/postexit"
	"tools.zach/dev/hyprshutdown/internal/state"
	"tools.zach/dev/hyprshutdown/internal/ui"
)

// Process exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// ErrNotHyprland is reported when HYPRLAND_INSTANCE_SIGNATURE is unset or
// empty.
var ErrNotHyprland = errors.New(envsnap.Signature + " is not set; not running under Hyprland")

// ///////////////////////////////////////////////
// Collaborators
// ///////////////////////////////////////////////

// Daemonizer performs the detach sequence for the current process image.
type Daemonizer interface {
	Daemonize(snap envsnap.Snapshot) (daemon.Result, error)
}

// Session is the shared shutdown state as seen by the driver.
type Session interface {
	ui.Source
	SetDryRun(v bool)
	Init(ctx context.Context, inst paths.Instance) error
	Close() error
}

// Shutdown is the UI as seen by the driver.
type Shutdown interface {
	Configure(s ui.Settings)
	Run(ctx context.Context) error
}

// Deps are the driver's external effects. [DefaultDeps] returns the real
// ones; tests substitute recorders.
type Deps struct {
	// Stdout receives help, version and --print-config output.
	Stdout io.Writer
	// Stderr receives parse errors and, in the foreground, log lines.
	Stderr io.Writer
	// LookupEnv reads the environment, like [os.LookupEnv].
	LookupEnv func(key string) (string, bool)
	// Dirs locates the config and log files.
	Dirs paths.Dirs
	// Version is printed by --version.
	Version string
	// DefaultConfig is printed by --print-config.
	DefaultConfig []byte

	// LoadConfig reads the config file at path.
	LoadConfig func(path string) (*config.Config, error)
	// OpenLog builds the logger. console, when non-nil, receives a copy of
	// every line.
	OpenLog func(f logger.File, opts logger.Options, console io.Writer) (*slog.Logger, io.Closer, error)
	// NewDaemonizer builds the detach sequence runner.
	NewDaemonizer func(log *slog.Logger) (Daemonizer, error)
	// IgnoreHangup ignores SIGHUP in the foreground path.
	IgnoreHangup func()
	// NewSession builds the shared state.
	NewSession func(log *slog.Logger) Session
	// NewUI builds the shutdown UI over an initialized session.
	NewUI func(s Session, opts ui.Options, log *slog.Logger) (Shutdown, error)
	// SwitchVT launches the VT switch without waiting for it.
	SwitchVT func(vt int)
	// Context returns the context for the UI run and its cancel function.
	Context func() (context.Context, context.CancelFunc)
}

// DefaultDeps returns the real collaborators for the running process.
func DefaultDeps(version string, defaultConfig []byte) Deps {
	home, _ := os.UserHomeDir()
	return Deps{
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		LookupEnv:     os.LookupEnv,
		Dirs:          paths.ResolveDirs(os.Getenv, home),
		Version:       version,
		DefaultConfig: defaultConfig,
		LoadConfig:    config.Load,
		OpenLog: func(f logger.File, opts logger.Options, console io.Writer) (*slog.Logger, io.Closer, error) {
			log, closer, err := logger.NewLogger(f, opts, console)
			if err == nil {
				slog.SetDefault(log)
			}
			return log, closer, err
		},
		NewDaemonizer: func(log *slog.Logger) (Daemonizer, error) {
			sys, err := daemon.NewOS()
			if err != nil {
				return nil, err
			}
			return daemon.New(sys, log), nil
		},
		IgnoreHangup: daemon.IgnoreHangup,
		NewSession: func(log *slog.Logger) Session {
			return state.New(log)
		},
		NewUI: func(s Session, opts ui.Options, log *slog.Logger) (Shutdown, error) {
			u, err := ui.New(s, opts, log)
			if err != nil {
				return nil, err
			}
			return u, nil
		},
		SwitchVT: postexit.SwitchVT,
		Context:  signalContext,
	}
}

// ///////////////////////////////////////////////
// Driver
// ///////////////////////////////////////////////

// Driver runs hyprshutdown once.
type Driver struct {
	deps Deps
}

// New creates a Driver.
func New(deps Deps) *Driver {
	return &Driver{deps: deps}
}

// Run parses args (without the program name), performs the shutdown and
// returns the process exit status.
func (d *Driver) Run(args []string) int {
	if args == nil {
		args = []string{}
	}

	var flags flagValues
	code := ExitOK
	cmd := &cobra.Command{
		Use:   paths.BinaryName + " [flags]",
		Short: "Close every application and end the Hyprland session",
		Long: `hyprshutdown asks every open window to close, waits for the applications
to exit, then ends the Hyprland session. It detaches from the terminal that
started it so that closing that terminal does not interrupt the shutdown.

Settings are read from ` + d.deps.Dirs.Config() + ` when it exists;
command line flags take precedence over the file.`,
		Version:       d.deps.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.printConfig {
				_, err := d.deps.Stdout.Write(d.deps.DefaultConfig)
				return err
			}
			file, loadErr := d.deps.LoadConfig(flags.configPath)
			if loadErr != nil {
				file = config.DefaultConfig()
			}
			code = d.execute(flags.resolve(cmd.Flags(), file), flags.configPath, loadErr)
			return nil
		},
	}
	flags.register(cmd.Flags(), d.deps.Dirs.Config())
	cmd.SetArgs(args)
	cmd.SetOut(d.deps.Stdout)
	cmd.SetErr(d.deps.Stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(d.deps.Stderr, "Error: %v\n", err)
		return ExitFailure
	}
	return code
}

// execute runs the shutdown sequence for a resolved configuration.
func (d *Driver) execute(cfg Config, configPath string, loadErr error) int {
	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.File.Log.Level))
	if cfg.Verbose {
		level.Set(logger.LevelTrace)
	}
	log, closeLog := d.openLog(level, cfg.File.Log.MaxSizeMB)
	defer closeLog()

	if loadErr != nil {
		log.Warn("config not loaded, using defaults", "path", configPath, "error", loadErr)
	}
	logger.Trace(log, "configuration resolved",
		"dry_run", cfg.DryRun,
		"no_exit", cfg.NoExit,
		"no_fork", cfg.NoFork,
		"top_label", cfg.TopLabel,
		"post_cmd", cfg.PostCmd,
		"vt", cfg.VT,
	)

	session := d.deps.NewSession(log)
	session.SetDryRun(cfg.DryRun)

	snap := envsnap.CaptureFrom(d.deps.LookupEnv)
	if !snap.HasSignature() {
		logger.Fail(log, "cannot shut down", "error", ErrNotHyprland)
		return ExitFailure
	}

	if cfg.NoFork {
		d.deps.IgnoreHangup()
		log.Debug("running in the foreground")
	} else {
		dz, err := d.deps.NewDaemonizer(log)
		if err != nil {
			logger.Fail(log, "cannot detach", "error", err)
			return ExitFailure
		}
		res, err := dz.Daemonize(snap)
		if err != nil {
			logger.Fail(log, "detach failed", "error", err)
			return ExitFailure
		}
		if res == daemon.ParentShouldExit {
			return ExitOK
		}
	}

	ctx, stop := d.deps.Context()
	defer stop()

	inst := paths.Instance{RuntimeDir: snap.RuntimeDir.Val, Signature: snap.Signature.Val}
	if err := session.Init(ctx, inst); err != nil {
		logger.Fail(log, "state initialization failed", "error", err)
		return ExitFailure
	}
	defer session.Close()

	shutdown, err := d.deps.NewUI(session, cfg.uiOptions(), log)
	if err != nil {
		logger.Fail(log, "ui setup failed", "error", err)
		return ExitFailure
	}
	shutdown.Configure(cfg.uiSettings())

	if err := shutdown.Run(ctx); err != nil {
		log.Error("shutdown did not complete", "error", err)
	}

	if cfg.switchVT() {
		d.deps.SwitchVT(cfg.VT)
	}
	log.Info("done")
	return ExitOK
}

// openLog builds the run's logger. Only the image started from the terminal
// mirrors lines to stderr. When the log file cannot be opened the logger
// falls back to stderr alone.
func (d *Driver) openLog(level slog.Leveler, maxSizeMB int) (*slog.Logger, func()) {
	var console io.Writer
	role, _ := daemon.RoleFromEnv(d.getenv)
	if role == daemon.RoleOriginal {
		console = d.deps.Stderr
	}

	opts := logger.Options{Level: level, Tag: fmt.Sprintf("%d/%s", os.Getpid(), role)}
	file := logger.File{Path: d.deps.Dirs.Log(), MaxSizeMB: maxSizeMB}

	log, closer, err := d.deps.OpenLog(file, opts, console)
	if err != nil {
		log = slog.New(logger.NewHandler(d.deps.Stderr, opts))
		log.Warn("log file unavailable", "path", file.Path, "error", err)
		return log, func() {}
	}
	return log, func() { closer.Close() }
}

// getenv reads key through LookupEnv.
func (d *Driver) getenv(key string) string {
	v, _ := d.deps.LookupEnv(key)
	return v
}
