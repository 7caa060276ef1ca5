package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager lays out export runs below one base directory. Every run
// writes its bundle into a directory named by the run ID.
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates an output manager rooted at baseOutputDir
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{BaseOutputDir: baseOutputDir}
}

// EnsureOutputDirExists creates the base directory
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0755)
}

// RunDir returns the bundle directory of run id without creating it. The ID
// must be a single path element so a run never escapes the base directory.
func (om *OutputManager) RunDir(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid export run id %q", id)
	}
	return filepath.Join(om.BaseOutputDir, id), nil
}

// CreateRunDir creates the bundle directory of run id
func (om *OutputManager) CreateRunDir(id string) (string, error) {
	dir, err := om.RunDir(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	return dir, nil
}
