// Package atomicfile replaces files so that readers see either the old or the
// new contents, never a partial write. The config file and the generated
// config.default.toml are written through it.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write replaces path with data. The data goes to a temporary file in the
// same directory, which is synced, given mode perm exactly (regardless of the
// umask), renamed over path, and finally the directory itself is synced. On
// failure the temporary file is removed and path is untouched.
func Write(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := writeTemp(dir, filepath.Base(path)+".tmp.*", data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(tmp), err)
	}
	return syncDir(dir)
}

// writeTemp creates a file matching pattern in dir holding data with mode
// perm and returns its name. Nothing is left behind on error.
func writeTemp(dir, pattern string, data []byte, perm os.FileMode) (name string, err error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name = f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(name)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(name), err)
	}
	if err = f.Chmod(perm); err != nil {
		return "", fmt.Errorf("chmod %s: %w", filepath.Base(name), err)
	}
	if err = f.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", filepath.Base(name), err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", filepath.Base(name), err)
	}
	return name, nil
}

// syncDir makes a completed rename durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
