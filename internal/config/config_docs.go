package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "ui.close_timeout_seconds")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate the
// generated config.default.toml with inline comments and alternative examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── UI ───────────────────────────────────────────────────────
	"ui": {
		Comment: "Shutdown UI behavior",
	},
	"ui.top_label": {
		Comment: "Text shown in the first notification. --top-label overrides it.",
	},
	"ui.close_timeout_seconds": {
		Comment: "How long to wait for applications to close after asking them to.",
	},
	"ui.poll_interval_ms": {
		Comment: "How often the open window list is re-read while waiting (minimum 10).",
	},
	"ui.force_kill": {
		Comment: "Kill windows that are still open after the timeout.\nWhen false the shutdown is aborted and the session stays up.",
		Alternatives: []string{
			`force_kill = true`,
		},
	},
	"ui.notify_color": {
		Comment: "Notification color as a Hyprland color, or \"0\" for the default.",
		Alternatives: []string{
			`notify_color = "rgb(89b4fa)"`,
		},
	},
	"ui.exit_timeout_seconds": {
		Comment: "How long to wait for Hyprland to go away after the exit dispatch.\n0 returns immediately after dispatching.",
	},

	// ── Apps ─────────────────────────────────────────────────────
	"apps": {
		Comment: "Application handling",
	},
	"apps.ignore": {
		Comment: "Glob patterns matched against window classes. Matching windows are\nnever closed. Supports *, ?, [abc] and {a,b}.",
		Alternatives: []string{
			`ignore = ["steam", "org.keepassxc.*", "{kitty,foot}"]`,
		},
	},
	"apps.post_cmd": {
		Comment: "Shell command run once every application has closed.\n--post-cmd overrides it.",
		Alternatives: []string{
			`post_cmd = "systemctl poweroff"`,
		},
	},

	// ── Session ──────────────────────────────────────────────────
	"session": {
		Comment: "Actions after the Hyprland session ends",
	},
	"session.vt": {
		Comment: "Virtual terminal to switch to once the UI returns (0 = none).\nRequires passwordless sudo for chvt. --vt overrides it.",
		Alternatives: []string{
			`vt = 1`,
		},
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Logging configuration",
	},
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"\n--verbose forces \"trace\".",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
}
