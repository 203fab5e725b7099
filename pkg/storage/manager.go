package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// timestampLayout is the on-disk filename prefix for attachments
const timestampLayout = "02-01-2006_15-04-05"

// Manager handles the output directory tree: one subdirectory per class, one
// file per attachment named after the post date and the attachment name.
type Manager struct {
	baseDir string
}

// NewManager creates a new storage manager rooted at baseDir
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the output base directory
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// ClassDir returns the directory for a class, creating it if absent
func (m *Manager) ClassDir(className string) (string, error) {
	dir := filepath.Join(m.baseDir, SanitizeName(className))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create class directory: %w", err)
	}
	return dir, nil
}

// AttachmentPath builds the deterministic destination path for an attachment:
// <classDir>/<DD-MM-YYYY_HH-MM-SS>-<name>
func (m *Manager) AttachmentPath(classDir string, postTime time.Time, name string) string {
	filename := postTime.Format(timestampLayout) + "-" + SanitizeName(name)
	return filepath.Join(classDir, filename)
}

// Exists reports whether the destination file is already on disk
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SaveFile writes the reader's content to path via a temporary file and an
// atomic rename, so a failed download never leaves a partial destination.
func (m *Manager) SaveFile(path string, r io.Reader) error {
	w, err := m.CreateTemp(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Abort()
		return fmt.Errorf("failed to write file data: %w", err)
	}
	return w.Commit()
}

// SetTimes stamps the file's access and modification times, so the on-disk
// timestamp reflects the content date rather than the download date.
func (m *Manager) SetTimes(path string, t time.Time) error {
	if err := os.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("failed to set file times: %w", err)
	}
	return nil
}

// FileWriter accumulates a destination file through a temporary sibling.
// Commit renames it into place; Abort discards it.
type FileWriter struct {
	file     *os.File
	tempPath string
	path     string
}

// CreateTemp opens a temporary writer for the destination path. Used for
// segment-by-segment video reconstruction, where the file grows append-only.
func (m *Manager) CreateTemp(path string) (*FileWriter, error) {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	return &FileWriter{file: file, tempPath: tempPath, path: path}, nil
}

// Write appends bytes to the temporary file
func (w *FileWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// Commit closes the temporary file and renames it to the destination
func (w *FileWriter) Commit() error {
	if err := w.file.Close(); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(w.tempPath, w.path); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Abort closes and removes the temporary file
func (w *FileWriter) Abort() {
	w.file.Close()
	os.Remove(w.tempPath)
}

// SanitizeName makes a name safe to use as a single path element
func SanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		"\x00", "",
	)
	sanitized := strings.TrimSpace(replacer.Replace(name))
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return "_"
	}
	return sanitized
}
