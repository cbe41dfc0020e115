// Tests for [Registry]: ordering, pending detection, version checks, error
// propagation and the config registry wiring.
package migrate

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// ///////////////////////////////////////////////
// Test Helpers
// ///////////////////////////////////////////////

// suffix returns a migration to v that appends "-v<v>".
func suffix(v int) Migration {
	return Migration{
		Version:     v,
		Description: fmt.Sprintf("add v%d suffix", v),
		Upgrade: func(d []byte) ([]byte, error) {
			return append(d, fmt.Sprintf("-v%d", v)...), nil
		},
	}
}

// ///////////////////////////////////////////////
// Register
// ///////////////////////////////////////////////

func TestRegisterSorts(t *testing.T) {
	r := &Registry{Name: "test", CurrentVersion: 4}
	r.Register(suffix(4))
	r.Register(suffix(2))
	r.Register(suffix(3))

	for i, want := range []int{2, 3, 4} {
		if r.Migrations[i].Version != want {
			t.Fatalf("Migrations[%d].Version = %d, want %d", i, r.Migrations[i].Version, want)
		}
	}
}

func TestRegisterPanics(t *testing.T) {
	tests := []struct {
		name string
		m    Migration
	}{
		{"duplicate version", suffix(2)},
		{"beyond current", suffix(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Registry{Name: "test", CurrentVersion: 2}
			r.Register(suffix(2))

			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			r.Register(tt.m)
		})
	}
}

// ///////////////////////////////////////////////
// Pending
// ///////////////////////////////////////////////

func TestPending(t *testing.T) {
	r := &Registry{Name: "test", CurrentVersion: 3}
	r.Register(suffix(2))
	r.Register(suffix(3))

	tests := []struct {
		name    string
		version int
		want    int
		needs   bool
	}{
		{"missing version", 0, 2, true},
		{"v1", 1, 2, true},
		{"v2", 2, 1, true},
		{"current", 3, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(r.Pending(tt.version)); got != tt.want {
				t.Errorf("len(Pending(%d)) = %d, want %d", tt.version, got, tt.want)
			}
			if got := r.NeedsMigration(tt.version); got != tt.needs {
				t.Errorf("NeedsMigration(%d) = %v, want %v", tt.version, got, tt.needs)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Upgrade
// ///////////////////////////////////////////////

func TestUpgradeAppliesInOrder(t *testing.T) {
	r := &Registry{Name: "test", CurrentVersion: 3}
	r.Register(suffix(3))
	r.Register(suffix(2))

	out, version, err := r.Upgrade([]byte("data"), 1)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if version != 3 {
		t.Errorf("version = %d, want 3", version)
	}
	if string(out) != "data-v2-v3" {
		t.Errorf("out = %q, want %q", out, "data-v2-v3")
	}
}

func TestUpgradeSkipsApplied(t *testing.T) {
	r := &Registry{Name: "test", CurrentVersion: 2}
	called := false
	r.Register(Migration{Version: 2, Description: "applied", Upgrade: func(d []byte) ([]byte, error) {
		called = true
		return d, nil
	}})

	out, version, err := r.Upgrade([]byte("data"), 2)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if called || version != 2 || string(out) != "data" {
		t.Errorf("Upgrade(v2) = %q, %d (called=%v)", out, version, called)
	}
}

func TestUpgradeStopsOnError(t *testing.T) {
	r := &Registry{Name: "test", CurrentVersion: 3}
	r.Register(suffix(2))
	r.Register(Migration{Version: 3, Description: "fails", Upgrade: func([]byte) ([]byte, error) {
		return nil, errors.New("boom")
	}})

	_, version, err := r.Upgrade([]byte("data"), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "test migration to v3 failed") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2 (last successful step)", version)
	}
}

func TestUpgradeRejectsNewer(t *testing.T) {
	r := &Registry{Name: "test", CurrentVersion: 2}
	_, _, err := r.Upgrade([]byte("data"), 5)
	if !errors.Is(err, ErrTooNew) {
		t.Fatalf("error = %v, want ErrTooNew", err)
	}
	if !strings.Contains(err.Error(), "version 5") {
		t.Errorf("error %q does not name the version", err)
	}
}

// ///////////////////////////////////////////////
// Config Registry
// ///////////////////////////////////////////////

func TestConfigRegistry(t *testing.T) {
	if Config.CurrentVersion != 2 {
		t.Fatalf("Config.CurrentVersion = %d, want 2", Config.CurrentVersion)
	}
	if Config.Name != "config" {
		t.Errorf("Config.Name = %q", Config.Name)
	}
}
