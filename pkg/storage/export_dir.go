// Package storage keeps generated report files on local disk and mints
// the signed tokens that gate their download.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportDir is a single directory holding rendered report files. Every
// name is resolved relative to the root; names that escape it are
// rejected because they arrive from download tokens.
type ExportDir struct {
	root string
}

// NewExportDir ensures the directory exists and returns a handle.
func NewExportDir(root string) (*ExportDir, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &ExportDir{root: root}, nil
}

// Save writes a rendered report under the given relative name.
func (d *ExportDir) Save(name string, data []byte) (string, error) {
	path, err := d.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return name, nil
}

// Open returns a read-only handle for a stored report.
func (d *ExportDir) Open(name string) (*os.File, error) {
	path, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Delete removes a stored report. A missing file is not an error.
func (d *ExportDir) Delete(name string) error {
	path, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete export file: %w", err)
	}
	return nil
}

// Sweep deletes every file whose modification time predates the window
// and reports how many were removed.
func (d *ExportDir) Sweep(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := filepath.WalkDir(d.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("sweep export directory: %w", err)
	}
	return removed, nil
}

// Path exposes the absolute location of a stored report.
func (d *ExportDir) Path(name string) string {
	path, err := d.resolve(name)
	if err != nil {
		return filepath.Join(d.root, filepath.Base(name))
	}
	return path
}

func (d *ExportDir) resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("export file name is empty")
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("export file name %q escapes the export directory", name)
	}
	return filepath.Join(d.root, clean), nil
}
