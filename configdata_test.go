package hyprshutdown

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"tools.zach/dev/hyprshutdown/internal/config"
)

// ///////////////////////////////////////////////
// Embedded Config Tests
// ///////////////////////////////////////////////

func TestDefaultConfigTOMLLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyprshutdown.toml")
	if err := os.WriteFile(path, DefaultConfigTOML, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(embedded default): %v", err)
	}
	if want := config.ExampleConfig(); !reflect.DeepEqual(cfg, want) {
		t.Errorf("embedded config = %+v, want %+v", cfg, want)
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Errorf("current-version config was backed up: %v", err)
	}
}
