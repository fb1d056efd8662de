// Package importer runs the import pipeline for one book: decode the
// container, classify pages against the manifest, render and write only what
// changed, then commit the manifest.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tuannvm/viwoods-obsidian/internal/catalog"
	"github.com/tuannvm/viwoods-obsidian/internal/checksum"
	"github.com/tuannvm/viwoods-obsidian/internal/container"
	"github.com/tuannvm/viwoods-obsidian/internal/manifest"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/ocr"
	"github.com/tuannvm/viwoods-obsidian/internal/reconcile"
	"github.com/tuannvm/viwoods-obsidian/internal/storage"
	"github.com/tuannvm/viwoods-obsidian/internal/svg"

	"github.com/tuannvm/viwoods-obsidian/internal/apperr"
)

// Output formats.
const (
	FormatPNG  = "png"
	FormatSVG  = "svg"
	FormatBoth = "both"
)

// Organization modes.
const (
	OrganizeFlat = "flat"
	OrganizeBook = "book"
)

// Overwrite policies for existing output files.
const (
	OverwriteReplace = "overwrite"
	OverwriteSkip    = "skip"
	OverwriteBackup  = "backup"
)

// Options configures the pipeline's output side.
type Options struct {
	Format           string // png|svg|both
	Organization     string // flat|book
	Overwrite        string // overwrite|skip|backup
	FilePrefix       string
	Background       string
	SVGWidth         int
	Smoothness       float64
	HistoryLimit     int
	IncludeThumbnail bool
	ExtractText      bool
	OCRLanguages     []string
	OCRConfidence    float64
}

// EventFunc is called after each page-level output event. kind is one of
// "page.imported", "page.deleted", "book.imported".
type EventFunc func(kind, book string, page int)

// Service is the import pipeline orchestrator.
type Service struct {
	out       storage.Provider
	manifests *manifest.Store
	cat       *catalog.DB // optional; nil disables the catalog
	extractor ocr.Extractor
	pens      *models.PenMapping
	opts      Options
	guard     *RunGuard
	logger    *slog.Logger
	onEvent   EventFunc
	now       func() time.Time
}

// NewService creates an import service. cat may be nil; extractor may be nil
// when text extraction is disabled.
func NewService(out storage.Provider, manifests *manifest.Store, cat *catalog.DB,
	extractor ocr.Extractor, guard *RunGuard, opts Options, logger *slog.Logger) *Service {
	if extractor == nil {
		extractor = ocr.Disabled{}
	}
	if guard == nil {
		guard = NewRunGuard()
	}
	if opts.Format == "" {
		opts.Format = FormatBoth
	}
	if opts.Organization == "" {
		opts.Organization = OrganizeBook
	}
	if opts.Overwrite == "" {
		opts.Overwrite = OverwriteReplace
	}
	return &Service{
		out:       out,
		manifests: manifests,
		cat:       cat,
		extractor: extractor,
		pens:      models.DefaultPenMapping(),
		opts:      opts,
		guard:     guard,
		logger:    logger,
		onEvent:   func(string, string, int) {},
		now:       time.Now,
	}
}

// OnEvent registers the page-event callback.
func (s *Service) OnEvent(fn EventFunc) {
	if fn != nil {
		s.onEvent = fn
	}
}

// ImportFile decodes a source container and runs the pipeline on it. name is
// the source-relative file name used for book naming and the manifest's
// SourceFile field.
func (s *Service) ImportFile(ctx context.Context, src storage.Provider, name string) (*models.ImportSummary, error) {
	data, err := src.Read(name)
	if err != nil {
		return nil, fmt.Errorf("importer: read source %s: %w", name, err)
	}
	book, err := container.Decode(name, data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("importer: container decoded",
		slog.String("file", name),
		slog.String("book", book.Name),
		slog.Int("pages", len(book.Pages)),
		slog.Time("created", book.Meta.BookTime()))
	return s.ImportBook(ctx, book, name)
}

// ImportBook reconciles a decoded book against its manifest and writes the
// changed pages. It returns apperr.ErrImportInProgress when a run for the
// same book is already in flight. Page-level failures are collected into the
// summary; only manifest persistence failures abort the run.
func (s *Service) ImportBook(ctx context.Context, book *models.Book, sourceFile string) (*models.ImportSummary, error) {
	if !s.guard.TryAcquire(book.Name) {
		return nil, fmt.Errorf("importer: %s: %w", book.Name, apperr.ErrImportInProgress)
	}
	defer s.guard.Release(book.Name)

	m, err := s.manifests.Load(book.Name)
	if err != nil {
		return nil, err
	}

	plan := reconcile.BuildPlan(book, m)
	var errs []models.PageError

	pagesByNum := make(map[int]*models.Page, len(book.Pages))
	for i := range book.Pages {
		pagesByNum[book.Pages[i].Num] = &book.Pages[i]
	}

	importDate := s.now()
	for _, c := range plan.Changes {
		switch c.Kind {
		case reconcile.Unchanged:
			continue

		case reconcile.Deleted:
			s.deletePage(book.Name, m, c.Num)

		case reconcile.New, reconcile.Modified:
			p := pagesByNum[c.Num]
			pageErrs := s.writePage(ctx, book, p, m, c, importDate)
			errs = append(errs, pageErrs...)
		}
	}

	summary := plan.Summary(book.Name, len(book.Pages), errs)

	if summary.Changed() || len(errs) > 0 {
		if s.opts.IncludeThumbnail && len(book.Thumbnail) > 0 {
			name := s.bookDir(book.Name) + manifest.BookKey(book.Name) + "_cover.png"
			if err := s.out.Write(name, book.Thumbnail); err != nil {
				s.logger.Warn("importer: thumbnail write failed",
					slog.String("book", book.Name), slog.String("error", err.Error()))
			}
		}

		touched := make([]int, 0, len(summary.NewPages)+len(summary.ModifiedPages))
		touched = append(touched, summary.NewPages...)
		touched = append(touched, summary.ModifiedPages...)

		m.BookName = book.Name
		m.TotalPages = len(book.Pages)
		m.LastImport = importDate
		m.SourceFile = sourceFile
		m.AppendHistory(models.HistoryEntry{
			Date:    importDate,
			Action:  "import",
			Pages:   touched,
			Summary: plan.HistoryLine(),
		}, s.opts.HistoryLimit)

		// The manifest is the sole authority for unchanged detection; a
		// failed save aborts the run so durable state never drifts from
		// what was written.
		if err := s.manifests.Save(m); err != nil {
			return nil, err
		}

		if s.cat != nil {
			if err := s.cat.UpsertBook(m); err != nil {
				s.logger.Warn("importer: catalog update failed",
					slog.String("book", book.Name), slog.String("error", err.Error()))
			}
			if err := s.cat.RecordRun(summary, importDate); err != nil {
				s.logger.Warn("importer: catalog run record failed",
					slog.String("book", book.Name), slog.String("error", err.Error()))
			}
		}
	}

	s.logger.Info("importer: run complete",
		slog.String("book", book.Name),
		slog.String("run_id", summary.RunID),
		slog.Int("new", len(summary.NewPages)),
		slog.Int("modified", len(summary.ModifiedPages)),
		slog.Int("unchanged", len(summary.UnchangedPages)),
		slog.Int("deleted", len(summary.DeletedPages)),
		slog.Int("errors", len(summary.Errors)))
	s.onEvent("book.imported", book.Name, 0)
	return summary, nil
}

// writePage writes one new/modified page's artifacts and updates its manifest
// entry. Returned errors are page-local; the run continues. A failed artifact
// write leaves the previous manifest entry in place (or none, for a new page)
// so the next run reclassifies the page and retries: a manifest entry always
// means the page's artifacts were actually written.
func (s *Service) writePage(ctx context.Context, book *models.Book, p *models.Page,
	m *models.ImportManifest, c reconcile.PageChange, importDate time.Time) []models.PageError {

	var errs []models.PageError
	writeFailed := false
	fail := func(stage string, err error) {
		errs = append(errs, pageError(p.Num, stage, err))
		writeFailed = true
	}
	base := s.pageBase(book.Name, p.Num)
	entry := m.ImportedPages[p.Num]

	// An audio-only change leaves image and vector output untouched.
	if !c.HasAudioChange {
		if s.opts.Format == FormatPNG || s.opts.Format == FormatBoth {
			if err := s.writeArtifact(base+".png", p.Image); err != nil {
				fail("image", err)
			}
		}
		if s.opts.Format == FormatSVG || s.opts.Format == FormatBoth {
			switch {
			case p.StrokeErr != nil:
				// Malformed source data, not a write failure: re-importing
				// the same bytes cannot help, so the page is still recorded.
				errs = append(errs, pageError(p.Num, "stroke", p.StrokeErr))
			case len(p.Strokes) > 0:
				markup := svg.Render(p.Strokes, s.pens, book.Meta.CanvasWidth, book.Meta.CanvasHeight, svg.Options{
					Width:      s.opts.SVGWidth,
					Smoothness: s.opts.Smoothness,
					Background: s.opts.Background,
				})
				if err := s.writeArtifact(base+".svg", []byte(markup)); err != nil {
					fail("svg", err)
				}
			}
		}
		if s.opts.ExtractText && len(p.Image) > 0 {
			res := s.extractor.Extract(ctx, p.Image, ocr.Request{
				Languages:           s.opts.OCRLanguages,
				ConfidenceThreshold: s.opts.OCRConfidence,
			})
			if res.Success && res.Text != "" {
				if err := s.writeArtifact(base+".txt", []byte(res.Text)); err != nil {
					fail("text", err)
				}
			}
		}
	}

	if p.Audio != nil {
		audioName := base + "_audio" + extOf(p.Audio.OriginalName)
		if err := s.writeArtifact(audioName, p.Audio.Data); err != nil {
			fail("audio", err)
		}
	} else if entry.HasAudio {
		// Audio removed on the device: drop the stale recording, whether the
		// image hash changed alongside or not.
		s.deleteAudio(base)
	}

	if writeFailed {
		return errs
	}

	m.ImportedPages[p.Num] = models.ImportedPage{
		FileName:        base + ".png",
		ImportDate:      importDate,
		ImageHash:       p.ImageHash,
		HasAudio:        p.Audio != nil,
		Size:            int64(len(p.Image)),
		BackgroundColor: s.opts.Background,
	}
	s.logger.Debug("importer: page written",
		slog.String("book", book.Name),
		slog.Int("page", p.Num),
		slog.String("hash", checksum.Short(p.Image)),
		slog.Int("points", p.Strokes.PointCount()))
	s.onEvent("page.imported", book.Name, p.Num)
	return errs
}

// deletePage removes a page's artifacts and its manifest entry.
func (s *Service) deletePage(bookName string, m *models.ImportManifest, num int) {
	base := s.pageBase(bookName, num)
	for _, suffix := range []string{".png", ".svg", ".txt"} {
		_ = s.out.Delete(base + suffix)
	}
	if entry, ok := m.ImportedPages[num]; ok && entry.HasAudio {
		s.deleteAudio(base)
	}
	delete(m.ImportedPages, num)
	s.onEvent("page.deleted", bookName, num)
}

// deleteAudio removes a page's audio artifact. The original extension is not
// recorded in the manifest, so every supported one is attempted.
func (s *Service) deleteAudio(base string) {
	for _, ext := range []string{".mp3", ".wav", ".m4a", ".ogg"} {
		_ = s.out.Delete(base + "_audio" + ext)
	}
}

// writeArtifact applies the overwrite policy, then writes atomically.
func (s *Service) writeArtifact(name string, data []byte) error {
	if s.opts.Overwrite != OverwriteReplace {
		if _, err := s.out.Stat(name); err == nil {
			switch s.opts.Overwrite {
			case OverwriteSkip:
				return nil
			case OverwriteBackup:
				if err := s.out.Move(name, name+".bak"); err != nil {
					return err
				}
			}
		}
	}
	return s.out.Write(name, data)
}

// pageBase returns the artifact path stem for a page, honoring the configured
// prefix and organization mode.
func (s *Service) pageBase(bookName string, num int) string {
	key := manifest.BookKey(bookName)
	return fmt.Sprintf("%s%s%s_p%03d", s.bookDir(bookName), s.opts.FilePrefix, key, num)
}

func (s *Service) bookDir(bookName string) string {
	if s.opts.Organization == OrganizeBook {
		return manifest.BookKey(bookName) + "/"
	}
	return ""
}

func pageError(num int, stage string, err error) models.PageError {
	return models.PageError{PageNum: num, Stage: stage, Message: err.Error()}
}

func extOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i:]
		}
	}
	return ".mp3"
}
