package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectMarkers name the entries whose presence marks a medlock project root,
// in the order they are checked within one directory.
var ProjectMarkers = []string{".medlock", "medlock.yaml", "go.mod", ".git"}

// FindProjectRoot walks up from startDir and returns the first directory that
// holds one of ProjectMarkers. The local ledger and blob store live under
// <root>/.medlock, so an existing data directory pins the root even inside a
// larger Go module.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		for _, marker := range ProjectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no project marker %v above %s", ProjectMarkers, startDir)
		}
		dir = parent
	}
}
