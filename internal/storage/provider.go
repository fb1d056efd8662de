// Package storage defines the root-confined file-system abstraction used for
// the source folder, the output vault, and the persisted state directory.
package storage

import "time"

// FileMeta is a lightweight stat result returned by List.
type FileMeta struct {
	Path    string // relative to the provider root
	Size    int64
	ModTime time.Time
}

// Provider is the interface for root-confined file operations. All paths are
// relative to the provider's root; paths escaping the root are rejected.
type Provider interface {
	// List returns metadata for every file under dir whose extension is in
	// exts (case-insensitive, with leading dot). Empty exts matches all files.
	List(dir string, exts ...string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
	// Stat returns metadata for a single file.
	Stat(path string) (FileMeta, error)
}
