// Package directory implements a config Loader backed by files in a
// single directory.
//
// The directory does not need to exist until the first Write, which
// creates the full path. This matters for stores living in per-user cache
// or config locations that a fresh account has never populated.
package directory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirsle/configdir"
	"github.com/mitchellh/go-homedir"
)

// Dir reads and writes files in the directory it points at.
type Dir string

// OpenDir returns a Dir rooted at path, optionally descending into the
// given namespace components. A leading ~ is expanded to the user's home.
func OpenDir(path string, namespace ...string) (Dir, error) {
	if path == "" {
		return "", fmt.Errorf("directory path must not be empty")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("could not expand %s: %w", path, err)
	}
	return Dir(filepath.Join(append([]string{expanded}, namespace...)...)), nil
}

// OpenHomeDir returns a Dir in the user's configuration directory,
// ~/.config/<name>/<namespace...> on linux.
func OpenHomeDir(name string, namespace ...string) (Dir, error) {
	return OpenDir(configdir.LocalConfig(), append([]string{name}, namespace...)...)
}

// OpenCacheDir returns a Dir in the user's cache directory,
// ~/.cache/<name>/<namespace...> on linux.
func OpenCacheDir(name string, namespace ...string) (Dir, error) {
	return OpenDir(configdir.LocalCache(), append([]string{name}, namespace...)...)
}

func (d Dir) Path() string {
	return string(d)
}

// List returns the names of all files in the directory.
//
// A directory that does not exist yet is the same as an empty one.
func (d Dir) List() ([]string, error) {
	entries, err := os.ReadDir(string(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (d Dir) Read(name string) ([]byte, error) {
	path, err := d.file(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Write stores data under name, creating the directory tree first.
//
// Files are created with mode 0600 as stores routinely hold credentials.
func (d Dir) Write(name string, data []byte) error {
	path, err := d.file(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(string(d), 0700); err != nil {
		return fmt.Errorf("could not create %s: %w", string(d), err)
	}
	return os.WriteFile(path, data, 0600)
}

func (d Dir) Delete(name string) error {
	path, err := d.file(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (d Dir) file(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("invalid file name: %q", name)
	}
	return filepath.Join(string(d), name), nil
}
