package api

import (
	"context"
	"fmt"

	"github.com/tuannvm/viwoods-obsidian/internal/apperr"
	"github.com/tuannvm/viwoods-obsidian/internal/catalog"
	"github.com/tuannvm/viwoods-obsidian/internal/manifest"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/scanner"
	"github.com/tuannvm/viwoods-obsidian/internal/storage"
)

// Service aggregates the collaborators the API surface exposes.
type Service struct {
	manifests *manifest.Store
	cat       *catalog.DB
	scan      *scanner.Scanner
	imp       scanner.Importer
	src       storage.Provider
}

// NewService creates the API service.
func NewService(manifests *manifest.Store, cat *catalog.DB, scan *scanner.Scanner,
	imp scanner.Importer, src storage.Provider) *Service {
	return &Service{manifests: manifests, cat: cat, scan: scan, imp: imp, src: src}
}

// ListBooks returns every cataloged book.
func (s *Service) ListBooks(_ context.Context) ([]catalog.BookRow, error) {
	return s.cat.ListBooks()
}

// GetManifest returns the persisted manifest for a book, or ErrNotFound when
// the book has never been imported.
func (s *Service) GetManifest(_ context.Context, bookName string) (*models.ImportManifest, error) {
	m, err := s.manifests.Load(bookName)
	if err != nil {
		return nil, err
	}
	if m.LastImport.IsZero() && len(m.ImportedPages) == 0 {
		return nil, fmt.Errorf("book %s: %w", bookName, apperr.ErrNotFound)
	}
	return m, nil
}

// ListRuns returns the recent import runs for a book.
func (s *Service) ListRuns(_ context.Context, bookName string, limit int) ([]catalog.RunRow, error) {
	return s.cat.ListRuns(bookName, limit)
}

// ImportFile runs the pipeline for one source file by name.
func (s *Service) ImportFile(ctx context.Context, name string) (*models.ImportSummary, error) {
	return s.imp.ImportFile(ctx, s.src, name)
}

// ScanNow performs a manual scan of the source folder.
func (s *Service) ScanNow(_ context.Context) ([]models.DetectedChange, error) {
	return s.scan.ScanForChanges()
}

// ImportPending consumes the scanner's pending change set.
func (s *Service) ImportPending(ctx context.Context) error {
	return s.scan.ImportDetectedChanges(ctx)
}

// SyncStatus reports the scanner's current snapshot.
func (s *Service) SyncStatus(_ context.Context) scanner.Status {
	return s.scan.Status()
}
