package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Store defines the interface for upload storage backends.
// This allows swapping the filesystem for S3 or other backends later.
type Store interface {
	Save(data io.Reader, filename, contentType string) (*StoredFile, error)
	Delete(path string) bool
	PurgeOlderThan(age time.Duration) (int, error)
	EnsureDir() error
	Dir() string
}

// StoredFile describes one persisted upload.
type StoredFile struct {
	ID        string // unique per upload, never reused
	Path      string
	Extension string
	Size      int64
}

// FileSystemStore stores uploaded files in a local upload directory.
type FileSystemStore struct {
	basePath    string
	allowedExts map[string]bool
}

// NewFileSystemStore creates a new filesystem storage backend. Files whose
// declared extension is not in allowedExtensions get one inferred from the
// declared MIME type instead.
func NewFileSystemStore(basePath string, allowedExtensions []string) *FileSystemStore {
	exts := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		exts[strings.ToLower(ext)] = true
	}
	return &FileSystemStore{basePath: basePath, allowedExts: exts}
}

// EnsureDir creates the upload directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Dir returns the upload directory path.
func (fs *FileSystemStore) Dir() string {
	return fs.basePath
}

// Save writes data to {uuid}.{ext} under the upload directory. A failed write
// never leaves a partial file behind.
func (fs *FileSystemStore) Save(data io.Reader, filename, contentType string) (*StoredFile, error) {
	if err := fs.EnsureDir(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	ext := fs.resolveExtension(filename, contentType)
	path := filepath.Join(fs.basePath, id+"."+ext)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	n, err := io.Copy(file, data)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return &StoredFile{ID: id, Path: path, Extension: ext, Size: n}, nil
}

// Delete removes a stored file. Deleting a path that no longer exists is not
// an error; it just reports false.
func (fs *FileSystemStore) Delete(path string) bool {
	err := os.Remove(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		slog.Error("failed to delete stored file", "path", path, "error", err)
	}
	return false
}

// PurgeOlderThan removes every regular file in the upload directory whose
// last-modified time is older than age, returning the number deleted.
// Individual file failures are logged and skipped.
func (fs *FileSystemStore) PurgeOlderThan(age time.Duration) (int, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	cutoff := time.Now().Add(-age)
	purged := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Error("failed to stat file during purge", "name", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(fs.basePath, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Error("failed to purge file", "path", path, "error", err)
			continue
		}
		purged++
	}
	return purged, nil
}

// resolveExtension picks the stored file's extension: the declared filename's
// extension when allowed, else one mapped from the declared MIME type, else
// "jpg" as a last resort.
func (fs *FileSystemStore) resolveExtension(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if fs.allowedExts[ext] {
		return ext
	}
	if contentType != "" {
		if mt := mimetype.Lookup(contentType); mt != nil {
			if e := strings.TrimPrefix(mt.Extension(), "."); e != "" {
				return e
			}
		}
	}
	return "jpg"
}
