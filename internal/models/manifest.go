package models

import "time"

// ManifestVersion is the current on-disk schema version of ImportManifest.
const ManifestVersion = 2

// ImportManifest is the durable per-book record of previously imported pages.
// The per-page ImageHash is the sole source of truth for "unchanged"
// detection: it must equal the hash recorded when the page's output was last
// written.
type ImportManifest struct {
	BookName      string               `json:"bookName"`
	TotalPages    int                  `json:"totalPages"`
	ImportedPages map[int]ImportedPage `json:"importedPages"`
	LastImport    time.Time            `json:"lastImport"`
	SourceFile    string               `json:"sourceFile"`
	Version       int                  `json:"version"`
	History       []HistoryEntry       `json:"history,omitempty"`
}

// NewImportManifest returns the empty-default manifest for a book that has
// never been imported.
func NewImportManifest(bookName string) *ImportManifest {
	return &ImportManifest{
		BookName:      bookName,
		ImportedPages: make(map[int]ImportedPage),
		Version:       ManifestVersion,
	}
}

// ImportedPage records one page that was actually written to durable storage.
type ImportedPage struct {
	FileName         string    `json:"fileName"`
	ImportDate       time.Time `json:"importDate"`
	ImageHash        string    `json:"imageHash"`
	DisplayImageHash string    `json:"displayImageHash,omitempty"`
	HasAudio         bool      `json:"hasAudio,omitempty"`
	LastModified     time.Time `json:"lastModified,omitempty"`
	Size             int64     `json:"size,omitempty"`
	BackgroundColor  string    `json:"backgroundColor,omitempty"`
}

// HistoryEntry is one line of a manifest's bounded import history.
type HistoryEntry struct {
	Date    time.Time `json:"date"`
	Action  string    `json:"action"`
	Pages   []int     `json:"pages,omitempty"`
	Summary string    `json:"summary"`
}

// AppendHistory appends e and trims the history to at most limit entries,
// dropping the oldest first. limit <= 0 disables trimming.
func (m *ImportManifest) AppendHistory(e HistoryEntry, limit int) {
	m.History = append(m.History, e)
	if limit > 0 && len(m.History) > limit {
		m.History = m.History[len(m.History)-limit:]
	}
}

// WatcherState is the durable record of known files in an auto-synced source
// folder. KnownFiles reflects the most recent successful scan; entries are
// removed only when the underlying file disappears from the folder.
type WatcherState struct {
	SourceFolder string               `json:"sourceFolder"`
	KnownFiles   map[string]KnownFile `json:"knownFiles"`
	LastScan     time.Time            `json:"lastScan"`
	IsEnabled    bool                 `json:"isEnabled"`
}

// NewWatcherState returns the empty-default state for a source folder.
func NewWatcherState(folder string) *WatcherState {
	return &WatcherState{
		SourceFolder: folder,
		KnownFiles:   make(map[string]KnownFile),
	}
}

// KnownFile is one source file as of the last successful scan.
type KnownFile struct {
	FilePath     string    `json:"filePath"`
	LastModified time.Time `json:"lastModified"`
	FileSize     int64     `json:"fileSize"`
	Hash         string    `json:"hash,omitempty"`
	LastImported time.Time `json:"lastImported,omitempty"`
	BookName     string    `json:"bookName,omitempty"`
}

// ChangeType classifies a detected source-file change.
type ChangeType string

const (
	ChangeNew      ChangeType = "new"
	ChangeModified ChangeType = "modified"
)

// DetectedChange is an ephemeral scan result. It is never persisted: the
// import workflow consumes it once and folds the outcome into WatcherState.
type DetectedChange struct {
	FileName       string     `json:"fileName"`
	FilePath       string     `json:"filePath"`
	ChangeType     ChangeType `json:"changeType"`
	LastModified   time.Time  `json:"lastModified"`
	EstimatedPages int        `json:"estimatedPages,omitempty"`
}

// PageError records a page-local failure surfaced in the import summary.
type PageError struct {
	PageNum int    `json:"pageNum"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ImportSummary is the outcome of one reconciliation/import run. A run always
// completes with a summary; per-page failures are collected here rather than
// aborting the batch.
type ImportSummary struct {
	RunID          string      `json:"runId"`
	BookName       string      `json:"bookName"`
	TotalPages     int         `json:"totalPages"`
	NewPages       []int       `json:"newPages"`
	ModifiedPages  []int       `json:"modifiedPages"`
	UnchangedPages []int       `json:"unchangedPages"`
	DeletedPages   []int       `json:"deletedPages"`
	Errors         []PageError `json:"errors,omitempty"`
}

// Changed reports whether the run wrote anything.
func (s *ImportSummary) Changed() bool {
	return len(s.NewPages) > 0 || len(s.ModifiedPages) > 0 || len(s.DeletedPages) > 0
}
