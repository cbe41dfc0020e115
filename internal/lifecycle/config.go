package lifecycle

import (
	"github.com/spf13/pflag"
	"tools.zach/dev/hyprshutdown/internal/config"
	"tools.zach/dev/hyprshutdown/internal/ui"
)

// ///////////////////////////////////////////////
// Resolved Configuration
// ///////////////////////////////////////////////

// Config is the resolved configuration of one run. It is built once from the
// command line and the config file and not modified afterwards.
type Config struct {
	// DryRun suppresses closing applications, the exit dispatch and the VT
	// switch.
	DryRun bool
	// NoExit keeps the compositor running once applications are closed.
	NoExit bool
	// NoFork runs in the foreground instead of detaching.
	NoFork bool
	// Verbose raises the log level to TRACE.
	Verbose bool
	// TopLabel is the text of the first notification.
	TopLabel string
	// PostCmd is launched after the applications are gone, if set.
	PostCmd string
	// VT is the virtual terminal to switch to afterwards; zero or less means
	// no switch.
	VT int
	// File is the loaded config file, or the defaults.
	File *config.Config
}

// uiOptions maps the config file's UI and apps sections to [ui.Options].
func (c Config) uiOptions() ui.Options {
	return ui.Options{
		CloseTimeout: c.File.CloseTimeout(),
		PollInterval: c.File.PollInterval(),
		ExitTimeout:  c.File.ExitTimeout(),
		ForceKill:    c.File.UI.ForceKill,
		NotifyColor:  c.File.UI.NotifyColor,
		Ignore:       c.File.IsIgnored,
	}
}

// uiSettings returns the per-run UI settings. A dry run always implies
// no-exit.
func (c Config) uiSettings() ui.Settings {
	return ui.Settings{
		NoExit:        c.NoExit || c.DryRun,
		ShutdownLabel: c.TopLabel,
		PostExitCmd:   c.PostCmd,
	}
}

// switchVT reports whether the VT switch should run after the UI returns.
func (c Config) switchVT() bool {
	return c.VT > 0 && !c.DryRun
}

// ///////////////////////////////////////////////
// Flags
// ///////////////////////////////////////////////

// Flag names shared by registration and resolution.
const (
	flagDryRun      = "dry-run"
	flagNoExit      = "no-exit"
	flagNoFork      = "no-fork"
	flagVerbose     = "verbose"
	flagTopLabel    = "top-label"
	flagPostCmd     = "post-cmd"
	flagVT          = "vt"
	flagConfig      = "config"
	flagPrintConfig = "print-config"
)

// flagValues receives the parsed command line.
type flagValues struct {
	dryRun      bool
	noExit      bool
	noFork      bool
	verbose     bool
	printConfig bool
	topLabel    string
	postCmd     string
	configPath  string
	vt          int
}

// register adds the command line flags to fs. configPath is the default
// location of the config file.
func (v *flagValues) register(fs *pflag.FlagSet, configPath string) {
	fs.BoolVar(&v.dryRun, flagDryRun, false, "Do not close applications, exit or switch VT; only report")
	fs.BoolVar(&v.noExit, flagNoExit, false, "Do not exit Hyprland once applications are closed")
	fs.BoolVar(&v.noFork, flagNoFork, false, "Stay in the foreground instead of detaching")
	fs.BoolVar(&v.verbose, flagVerbose, false, "Enable trace logging")
	fs.StringVarP(&v.topLabel, flagTopLabel, "t", config.DefaultTopLabel, "Text shown when the shutdown starts")
	fs.StringVarP(&v.postCmd, flagPostCmd, "p", "", "Shell command to run after applications are closed")
	fs.IntVar(&v.vt, flagVT, 0, "Switch to this virtual terminal after the session ends")
	fs.StringVar(&v.configPath, flagConfig, configPath, "Path to the config file")
	fs.BoolVar(&v.printConfig, flagPrintConfig, false, "Print the default config file and exit")
}

// resolve merges the parsed flags over file. A file value is replaced only by
// a flag the user actually set.
func (v *flagValues) resolve(fs *pflag.FlagSet, file *config.Config) Config {
	cfg := Config{
		DryRun:   v.dryRun,
		NoExit:   v.noExit,
		NoFork:   v.noFork,
		Verbose:  v.verbose,
		TopLabel: file.UI.TopLabel,
		PostCmd:  file.Apps.PostCmd,
		VT:       file.Session.VT,
		File:     file,
	}
	if fs.Changed(flagTopLabel) {
		cfg.TopLabel = v.topLabel
	}
	if fs.Changed(flagPostCmd) {
		cfg.PostCmd = v.postCmd
	}
	if fs.Changed(flagVT) {
		cfg.VT = v.vt
	}
	return cfg
}
