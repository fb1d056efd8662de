// Package manifest persists the durable importer state: one ImportManifest
// per book and one WatcherState per source folder, each a single JSON file
// written atomically (read-modify-write, never streamed).
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/storage"
)

const watcherStateFile = "watcher.json"

var unsafeKeyRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store reads and writes importer state files under a state directory.
type Store struct {
	fs storage.Provider
}

// NewStore creates a Store over the given state directory provider.
func NewStore(fs storage.Provider) *Store {
	return &Store{fs: fs}
}

// BookKey derives the stable file-name key for a book name. The mapping is
// lossy: distinct names can sanitize to the same key ("A/B" and "A_B" both
// yield "A_B") and then share one manifest file and output prefix. Device
// book names are expected to stay unique after sanitization; a colliding
// rename merges import state.
func BookKey(bookName string) string {
	key := unsafeKeyRe.ReplaceAllString(strings.TrimSpace(bookName), "_")
	key = strings.Trim(key, "._")
	if key == "" {
		key = "book"
	}
	return key
}

func manifestFile(bookName string) string {
	return BookKey(bookName) + ".manifest.json"
}

// Load returns the manifest for a book. A missing manifest file is the
// first-import case and yields the empty default, not an error.
func (s *Store) Load(bookName string) (*models.ImportManifest, error) {
	data, err := s.fs.Read(manifestFile(bookName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewImportManifest(bookName), nil
		}
		return nil, fmt.Errorf("manifest: load %s: %w", bookName, err)
	}
	var m models.ImportManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", bookName, err)
	}
	if m.ImportedPages == nil {
		m.ImportedPages = make(map[int]models.ImportedPage)
	}
	return &m, nil
}

// Save atomically overwrites the persisted manifest for a book. Callers
// read-modify-write under the importer's single-flight guard; there are no
// concurrent writers to the same book.
func (s *Store) Save(m *models.ImportManifest) error {
	m.Version = models.ManifestVersion
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode %s: %w", m.BookName, err)
	}
	if err := s.fs.Write(manifestFile(m.BookName), data); err != nil {
		return fmt.Errorf("manifest: save %s: %w", m.BookName, err)
	}
	return nil
}

// Books lists the book names of all persisted manifests.
func (s *Store) Books() ([]string, error) {
	metas, err := s.fs.List("", ".json")
	if err != nil {
		return nil, fmt.Errorf("manifest: list: %w", err)
	}
	var out []string
	for _, meta := range metas {
		if !strings.HasSuffix(meta.Path, ".manifest.json") {
			continue
		}
		m, err := s.loadFile(meta.Path)
		if err != nil {
			continue
		}
		out = append(out, m.BookName)
	}
	return out, nil
}

func (s *Store) loadFile(path string) (*models.ImportManifest, error) {
	data, err := s.fs.Read(path)
	if err != nil {
		return nil, err
	}
	var m models.ImportManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadWatcherState returns the persisted watcher state for folder, or the
// empty default when none has been saved yet.
func (s *Store) LoadWatcherState(folder string) (*models.WatcherState, error) {
	data, err := s.fs.Read(watcherStateFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewWatcherState(folder), nil
		}
		return nil, fmt.Errorf("manifest: load watcher state: %w", err)
	}
	var ws models.WatcherState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("manifest: parse watcher state: %w", err)
	}
	if ws.KnownFiles == nil {
		ws.KnownFiles = make(map[string]models.KnownFile)
	}
	// A reconfigured source folder invalidates the old known-file set.
	if ws.SourceFolder != folder {
		return models.NewWatcherState(folder), nil
	}
	return &ws, nil
}

// SaveWatcherState atomically overwrites the persisted watcher state.
func (s *Store) SaveWatcherState(ws *models.WatcherState) error {
	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode watcher state: %w", err)
	}
	if err := s.fs.Write(watcherStateFile, data); err != nil {
		return fmt.Errorf("manifest: save watcher state: %w", err)
	}
	return nil
}
