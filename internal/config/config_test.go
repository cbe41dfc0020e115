// Tests for the config package covering [Load] behavior (defaults, overrides,
// missing files, malformed input, v1 migration), window class filtering
// ([Config.IsIgnored]), validation ([Config.Validate]), serialization
// round-trips ([Config.Save]), and [ConfigDocs] completeness.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/hyprshutdown/internal/migrate"
)

// ///////////////////////////////////////////////
// Load
// ///////////////////////////////////////////////

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		noFile  bool // if true, skip writing a config file
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:   "defaults from minimal config",
			config: "version = 2\n",
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				def := DefaultConfig()
				if cfg.UI.TopLabel != def.UI.TopLabel {
					t.Errorf("TopLabel = %q, want %q", cfg.UI.TopLabel, def.UI.TopLabel)
				}
				if cfg.UI.CloseTimeoutSeconds != def.UI.CloseTimeoutSeconds {
					t.Errorf("CloseTimeoutSeconds = %d, want %d",
						cfg.UI.CloseTimeoutSeconds, def.UI.CloseTimeoutSeconds)
				}
			},
		},
		{
			name: "user overrides applied",
			config: `
version = 2

[ui]
top_label = "Bye"
force_kill = true

[apps]
ignore = ["steam", "org.keepassxc.*"]
post_cmd = "systemctl poweroff"

[session]
vt = 2
`,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.UI.TopLabel != "Bye" {
					t.Errorf("TopLabel = %q, want %q", cfg.UI.TopLabel, "Bye")
				}
				if !cfg.UI.ForceKill {
					t.Error("ForceKill = false, want true")
				}
				if !reflect.DeepEqual(cfg.Apps.Ignore, []string{"steam", "org.keepassxc.*"}) {
					t.Errorf("Ignore = %v", cfg.Apps.Ignore)
				}
				if cfg.Apps.PostCmd != "systemctl poweroff" {
					t.Errorf("PostCmd = %q", cfg.Apps.PostCmd)
				}
				if cfg.Session.VT != 2 {
					t.Errorf("VT = %d, want 2", cfg.Session.VT)
				}
			},
		},
		{
			name: "partial override preserves other defaults",
			config: `
version = 2

[ui]
poll_interval_ms = 100
`,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.UI.PollIntervalMS != 100 {
					t.Errorf("PollIntervalMS = %d, want 100", cfg.UI.PollIntervalMS)
				}
				def := DefaultConfig()
				if cfg.UI.ExitTimeoutSeconds != def.UI.ExitTimeoutSeconds {
					t.Errorf("ExitTimeoutSeconds = %d, want default %d",
						cfg.UI.ExitTimeoutSeconds, def.UI.ExitTimeoutSeconds)
				}
				if cfg.Log.Level != def.Log.Level {
					t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, def.Log.Level)
				}
			},
		},
		{
			name:   "missing file returns defaults",
			noFile: true,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				def := DefaultConfig()
				if !reflect.DeepEqual(cfg, def) {
					t.Errorf("got %+v, want defaults %+v", cfg, def)
				}
			},
		},
		{
			name:    "malformed TOML returns error",
			config:  "this is not valid toml [[[",
			wantErr: true,
		},
		{
			name:    "invalid value fails validation",
			config:  "version = 2\n[ui]\nclose_timeout_seconds = 0\n",
			wantErr: true,
		},
		{
			name:    "newer schema rejected",
			config:  "version = 9\n",
			wantErr: true,
		},
		{
			name:   "unknown keys are tolerated",
			config: "version = 2\n[ui]\nshiny = true\n",
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.UI.TopLabel != DefaultTopLabel {
					t.Errorf("TopLabel = %q, want default", cfg.UI.TopLabel)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "hyprshutdown.toml")
			if !tt.noFile {
				writeConfig(t, path, tt.config)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
				return
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyprshutdown.toml")
	writeConfig(t, path, "version = 9\n")

	if _, err := Load(path); !errors.Is(err, migrate.ErrTooNew) {
		t.Fatalf("Load error = %v, want migrate.ErrTooNew", err)
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Errorf("backup written for a newer schema: %v", err)
	}
}

// ///////////////////////////////////////////////
// Migration integration
// ///////////////////////////////////////////////

func TestLoad_MigratesV1(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hyprshutdown.toml")
	v1 := `
top_label = "Goodbye"
timeout = 30
ignore = ["steam"]
post_cmd = "loginctl terminate-session self"
vt = 3

[log]
level = "debug"
`
	writeConfig(t, path, v1)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Version != 2 {
		t.Errorf("Version = %d, want 2", cfg.Version)
	}
	if cfg.UI.TopLabel != "Goodbye" {
		t.Errorf("TopLabel = %q, want Goodbye", cfg.UI.TopLabel)
	}
	if cfg.UI.CloseTimeoutSeconds != 30 {
		t.Errorf("CloseTimeoutSeconds = %d, want 30", cfg.UI.CloseTimeoutSeconds)
	}
	if !reflect.DeepEqual(cfg.Apps.Ignore, []string{"steam"}) {
		t.Errorf("Ignore = %v, want [steam]", cfg.Apps.Ignore)
	}
	if cfg.Apps.PostCmd != "loginctl terminate-session self" {
		t.Errorf("PostCmd = %q", cfg.Apps.PostCmd)
	}
	if cfg.Session.VT != 3 {
		t.Errorf("VT = %d, want 3", cfg.Session.VT)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}

	// The original file stays untouched; a backup is written beside it.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != v1 {
		t.Errorf("config file was rewritten:\n%s", data)
	}
	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if string(bak) != v1 {
		t.Errorf("backup content = %q, want original", bak)
	}
}

func TestLoad_BackupNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hyprshutdown.toml")
	writeConfig(t, path+".bak", "# older backup\n")
	writeConfig(t, path, "vt = 1\n")

	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(bak) != "# older backup\n" {
		t.Errorf("existing backup replaced: %q", bak)
	}
}

func TestUpgradeV1Sections_SectionWins(t *testing.T) {
	in := []byte("top_label = \"flat\"\n\n[ui]\ntop_label = \"nested\"\n")

	out, err := upgradeV1Sections(in)
	if err != nil {
		t.Fatalf("upgradeV1Sections: %v", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(out, cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cfg.UI.TopLabel != "nested" {
		t.Errorf("TopLabel = %q, want nested", cfg.UI.TopLabel)
	}
	if cfg.Version != 2 {
		t.Errorf("Version = %d, want 2", cfg.Version)
	}
	if strings.Contains(string(out), "flat") {
		t.Errorf("flat key still present:\n%s", out)
	}
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

func TestPeekVersion(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{
			name: "reads version from TOML",
			data: "version = 3\n[ui]\ntop_label = \"x\"\n",
			want: 3,
		},
		{
			name: "missing version returns 1",
			data: "vt = 2\n",
			want: 1, // normalized from 0
		},
		{
			name: "garbage returns 1",
			data: "[[[",
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeekVersion([]byte(tt.data))
			if got != tt.want {
				t.Errorf("PeekVersion() = %d, want %d", got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// ExampleConfig
// ///////////////////////////////////////////////

func TestExampleConfig(t *testing.T) {
	cfg := ExampleConfig()
	if cfg == nil {
		t.Fatal("ExampleConfig returned nil")
		return
	}
	if cfg.Version != 2 {
		t.Errorf("Version = %d, want 2", cfg.Version)
	}
	if len(cfg.Apps.Ignore) == 0 {
		t.Error("expected an example ignore pattern")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("ExampleConfig does not validate: %v", err)
	}
	var buf strings.Builder
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(cfg); err != nil {
		t.Fatalf("failed to marshal ExampleConfig: %v", err)
	}
}

// ///////////////////////////////////////////////
// ConfigDocs completeness
// ///////////////////////////////////////////////

func TestConfigDocsComplete(t *testing.T) {
	fields := collectTOMLFields(reflect.TypeOf(Config{}), "")
	for _, field := range fields {
		if _, ok := ConfigDocs[field]; !ok {
			t.Errorf("ConfigDocs missing entry for field %q", field)
		}
	}
}

// collectTOMLFields recursively walks a struct type and returns the
// dot-separated TOML key path for every tagged field. Used by
// TestConfigDocsComplete to verify that [ConfigDocs] covers all fields.
func collectTOMLFields(typ reflect.Type, prefix string) []string {
	var fields []string
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("toml")
		if tag == "" || tag == "-" {
			continue
		}
		// Strip options like ",omitempty"
		if idx := strings.Index(tag, ","); idx != -1 {
			tag = tag[:idx]
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			fields = append(fields, collectTOMLFields(f.Type, path)...)
		} else {
			fields = append(fields, path)
		}
	}
	return fields
}

// ///////////////////////////////////////////////
// Marshal field order
// ///////////////////////////////////////////////

func TestConfigMarshalFieldOrder(t *testing.T) {
	cfg := DefaultConfig()
	var buf strings.Builder
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(cfg); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := buf.String()

	tests := []struct {
		name   string
		before string
		after  string
	}{
		{"version before [ui]", "version", "[ui]"},
		{"[ui] before [apps]", "[ui]", "[apps]"},
		{"[apps] before [session]", "[apps]", "[session]"},
		{"[session] before [log]", "[session]", "[log]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bIdx := strings.Index(out, tt.before)
			aIdx := strings.Index(out, tt.after)
			if bIdx < 0 || aIdx < 0 || bIdx > aIdx {
				t.Errorf("expected %q before %q in marshaled output", tt.before, tt.after)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Save
// ///////////////////////////////////////////////

func TestConfig_Save_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hyprshutdown.toml")

	orig := DefaultConfig()
	orig.UI.TopLabel = "round-trip-test"
	orig.UI.PollIntervalMS = 500
	orig.Apps.Ignore = []string{"firefox"}

	if err := orig.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
		return
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
		return
	}

	if !reflect.DeepEqual(loaded, orig) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", loaded, orig)
	}
}

// ///////////////////////////////////////////////
// Validate
// ///////////////////////////////////////////////

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "default config passes",
			setup:   func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "blank top_label",
			setup:   func(cfg *Config) { cfg.UI.TopLabel = "  " },
			wantErr: true,
		},
		{
			name:    "close_timeout_seconds = 0",
			setup:   func(cfg *Config) { cfg.UI.CloseTimeoutSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "poll_interval_ms too small",
			setup:   func(cfg *Config) { cfg.UI.PollIntervalMS = 5 },
			wantErr: true,
		},
		{
			name:    "negative exit_timeout_seconds",
			setup:   func(cfg *Config) { cfg.UI.ExitTimeoutSeconds = -1 },
			wantErr: true,
		},
		{
			name:    "exit_timeout_seconds = 0 allowed",
			setup:   func(cfg *Config) { cfg.UI.ExitTimeoutSeconds = 0 },
			wantErr: false,
		},
		{
			name:    "notify_color with spaces",
			setup:   func(cfg *Config) { cfg.UI.NotifyColor = "rgb(1, 2, 3)" },
			wantErr: true,
		},
		{
			name:    "empty notify_color",
			setup:   func(cfg *Config) { cfg.UI.NotifyColor = "" },
			wantErr: true,
		},
		{
			name:    "bad ignore glob",
			setup:   func(cfg *Config) { cfg.Apps.Ignore = []string{"[unterminated"} },
			wantErr: true,
		},
		{
			name:    "negative vt",
			setup:   func(cfg *Config) { cfg.Session.VT = -1 },
			wantErr: true,
		},
		{
			name:    "vt out of range",
			setup:   func(cfg *Config) { cfg.Session.VT = 64 },
			wantErr: true,
		},
		{
			name:    "invalid log.level",
			setup:   func(cfg *Config) { cfg.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "log.level case-insensitive",
			setup:   func(cfg *Config) { cfg.Log.Level = "DEBUG" },
			wantErr: false,
		},
		{
			name:    "max_size_mb = 0",
			setup:   func(cfg *Config) { cfg.Log.MaxSizeMB = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.setup(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Durations
// ///////////////////////////////////////////////

func TestConfig_Durations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UI.CloseTimeoutSeconds = 3
	cfg.UI.PollIntervalMS = 125
	cfg.UI.ExitTimeoutSeconds = 7

	if got := cfg.CloseTimeout(); got != 3*time.Second {
		t.Errorf("CloseTimeout() = %v", got)
	}
	if got := cfg.PollInterval(); got != 125*time.Millisecond {
		t.Errorf("PollInterval() = %v", got)
	}
	if got := cfg.ExitTimeout(); got != 7*time.Second {
		t.Errorf("ExitTimeout() = %v", got)
	}
}

// ///////////////////////////////////////////////
// IsIgnored
// ///////////////////////////////////////////////

func TestConfig_IsIgnored(t *testing.T) {
	tests := []struct {
		name   string
		ignore []string
		class  string
		want   bool
	}{
		{"no patterns", nil, "firefox", false},
		{"exact match", []string{"firefox"}, "firefox", true},
		{"star", []string{"org.keepassxc.*"}, "org.keepassxc.KeePassXC", true},
		{"alternation", []string{"{kitty,foot}"}, "foot", true},
		{"no match", []string{"steam"}, "firefox", false},
		{"case sensitive", []string{"Steam"}, "steam", false},
		{"star matches empty class", []string{"*"}, "", true},
		{"invalid pattern skipped", []string{"[bad", "firefox"}, "firefox", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Apps.Ignore = tt.ignore
			if got := cfg.IsIgnored(tt.class); got != tt.want {
				t.Errorf("IsIgnored(%q) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// writeConfig writes a TOML config string to path for use by [Load] in test
// cases.
func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
}
