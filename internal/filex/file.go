// Package filex resolves the on-disk data directory shared by the agent and
// the client.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDir makes sure dirName exists and returns its absolute path.
// Relative names are resolved against the current working directory.
func EnsureDataDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// DataFile returns the path of name inside the data directory, creating the
// directory if needed.
func DataFile(dirName, name string) (string, error) {
	dir, err := EnsureDataDir(dirName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
