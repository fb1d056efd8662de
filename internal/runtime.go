package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tuannvm/viwoods-obsidian/internal/catalog"
	"github.com/tuannvm/viwoods-obsidian/internal/importer"
	"github.com/tuannvm/viwoods-obsidian/internal/manifest"
	"github.com/tuannvm/viwoods-obsidian/internal/mcpserver"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/ocr"
	"github.com/tuannvm/viwoods-obsidian/internal/scanner"
	"github.com/tuannvm/viwoods-obsidian/internal/storage"
)

// runtime bundles the pipeline components shared by the server and the
// one-shot CLI commands.
type runtime struct {
	src       *storage.FS
	out       *storage.FS
	manifests *manifest.Store
	cat       *catalog.DB
	imp       *importer.Service
	logger    *slog.Logger
}

func buildRuntime(cfg *Config, logger *slog.Logger) (*runtime, error) {
	src, err := storage.NewFS(cfg.Source.Path)
	if err != nil {
		return nil, fmt.Errorf("init source: %w", err)
	}
	out, err := storage.NewFS(cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}
	stateFS, err := storage.NewFS(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("init state dir: %w", err)
	}
	manifests := manifest.NewStore(stateFS)

	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	var extractor ocr.Extractor = ocr.Disabled{}
	if cfg.OCR.Enabled {
		extractor = &ocr.Command{Bin: cfg.OCR.Command, Timeout: cfg.OCR.Timeout}
	}

	imp := importer.NewService(out, manifests, cat, extractor, importer.NewRunGuard(), importer.Options{
		Format:           cfg.Output.Format,
		Organization:     cfg.Output.Organization,
		Overwrite:        cfg.Output.Overwrite,
		FilePrefix:       cfg.Output.FilePrefix,
		Background:       cfg.Output.Background,
		SVGWidth:         cfg.Output.SVGWidth,
		Smoothness:       cfg.Output.Smoothness,
		HistoryLimit:     cfg.Output.HistoryLimit,
		IncludeThumbnail: cfg.Output.IncludeThumbnail,
		ExtractText:      cfg.OCR.Enabled,
		OCRLanguages:     cfg.OCR.Languages,
		OCRConfidence:    cfg.OCR.ConfidenceThreshold,
	}, logger)

	return &runtime{src: src, out: out, manifests: manifests, cat: cat, imp: imp, logger: logger}, nil
}

func (r *runtime) Close() {
	_ = r.cat.Close()
}

func (r *runtime) newScanner(cfg *Config) *scanner.Scanner {
	return scanner.New(r.src, r.manifests, r.imp, scanner.Options{
		Interval:     cfg.Sync.Interval,
		StartupDelay: cfg.Sync.StartupDelay,
		ScanOnStart:  cfg.Sync.ScanOnStart,
		BatchSize:    cfg.Sync.BatchSize,
	}, r.logger)
}

// ImportOnce runs the pipeline once for a single source file.
func ImportOnce(ctx context.Context, cfg *Config, file string) (*models.ImportSummary, error) {
	rt, err := buildRuntime(cfg, newLogger(cfg))
	if err != nil {
		return nil, err
	}
	defer rt.Close()
	return rt.imp.ImportFile(ctx, rt.src, file)
}

// ScanOnce performs a single scan of the source folder and imports whatever
// it detects.
func ScanOnce(ctx context.Context, cfg *Config) ([]models.DetectedChange, error) {
	rt, err := buildRuntime(cfg, newLogger(cfg))
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	scanCfg := *cfg
	scanCfg.Sync.ScanOnStart = false
	scan := rt.newScanner(&scanCfg)
	if err := scan.Start(ctx); err != nil {
		return nil, err
	}
	defer scan.Stop()

	changes, err := scan.ScanForChanges()
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := scan.ImportDetectedChanges(ctx); err != nil {
			return changes, err
		}
	}
	return changes, nil
}

// ServeMCP runs the MCP stdio server over the pipeline components.
func ServeMCP(_ context.Context, cfg *Config) error {
	rt, err := buildRuntime(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer rt.Close()
	return mcpserver.New(rt.src, rt.manifests, rt.cat, rt.imp).ServeStdio()
}
