package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects empty paths and any path containing directory
// traversal components. Absolute paths are allowed; deployments point the
// config and database anywhere on disk.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	cleaned := filepath.Clean(path)

	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	return nil
}

// ValidateFilePathStrict additionally refuses absolute paths; use it for
// paths that must stay inside the working directory.
func ValidateFilePathStrict(path string) error {
	if err := ValidateFilePath(path); err != nil {
		return err
	}

	if filepath.IsAbs(filepath.Clean(path)) {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}

	return nil
}

// ValidateFilePathWithBase confirms the path resolves inside baseDir.
func ValidateFilePathWithBase(path, baseDir string) error {
	if err := ValidateFilePath(path); err != nil {
		return err
	}

	resolved := filepath.Clean(filepath.Join(baseDir, path))
	base := filepath.Clean(baseDir)

	if !strings.HasPrefix(resolved, base) {
		return fmt.Errorf("path escapes base directory: %s", path)
	}

	return nil
}
