// Package migrate upgrades versioned documents, such as the config file, from
// an older schema to the current one.
//
// Upgrades happen in memory. The package never reads or writes files; callers
// decide whether and where the original bytes are kept.
package migrate

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrTooNew is returned when a document's version is newer than the registry
// understands, e.g. a config written by a later release.
var ErrTooNew = errors.New("schema version newer than supported")

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades a document from the previous version to Version.
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short label for log output.
	Description string
	// Upgrade transforms the document.
	Upgrade func(data []byte) ([]byte, error)
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Registry holds the current version and the migrations of one document
// kind. Migrations are kept sorted by version.
type Registry struct {
	// Name identifies the document kind in errors and logs.
	Name string
	// CurrentVersion is the version produced by the last migration.
	CurrentVersion int
	// Migrations is sorted by Version. Tests may replace it.
	Migrations []Migration
}

// Register adds m. It panics if a migration for the same version exists or
// if m targets a version beyond CurrentVersion; both are programming errors.
func (r *Registry) Register(m Migration) {
	if m.Version > r.CurrentVersion {
		panic(fmt.Sprintf("migrate: %s migration to v%d exceeds current version %d", r.Name, m.Version, r.CurrentVersion))
	}
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate %s migration version %d (description: %q)", r.Name, m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
	sort.Slice(r.Migrations, func(i, j int) bool {
		return r.Migrations[i].Version < r.Migrations[j].Version
	})
}

// Pending returns the migrations a document at version would go through.
func (r *Registry) Pending(version int) []Migration {
	var out []Migration
	for _, m := range r.Migrations {
		if version < m.Version {
			out = append(out, m)
		}
	}
	return out
}

// NeedsMigration reports whether a document at version has pending
// migrations.
func (r *Registry) NeedsMigration(version int) bool {
	return len(r.Pending(version)) > 0
}

// Check returns [ErrTooNew] when version is beyond CurrentVersion.
func (r *Registry) Check(version int) error {
	if version > r.CurrentVersion {
		return fmt.Errorf("%w: %s version %d, supported %d", ErrTooNew, r.Name, version, r.CurrentVersion)
	}
	return nil
}

// Upgrade checks version and applies the pending migrations in order. It
// returns the upgraded document and the version reached, which is the
// version of the last successful step when an error is returned.
func (r *Registry) Upgrade(data []byte, version int) ([]byte, int, error) {
	if err := r.Check(version); err != nil {
		return nil, version, err
	}
	for _, m := range r.Pending(version) {
		slog.Info("applying migration", "schema", r.Name, "version", m.Version, "description", m.Description)
		next, err := m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("%s migration to v%d failed: %w", r.Name, m.Version, err)
		}
		data, version = next, m.Version
	}
	return data, version, nil
}
