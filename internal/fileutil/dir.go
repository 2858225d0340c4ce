package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// stateDirMode keeps ledger directories private to the user running the tests;
// the ledger holds cluster endpoints and namespace names.
const stateDirMode = 0o700

// EnsureDir creates path and its parents if they do not exist yet.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, stateDirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// EnsureDirForFile creates the parent directory of filePath.
func EnsureDirForFile(filePath string) error {
	if err := EnsureDir(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", filePath, err)
	}
	return nil
}
