// Package testutil provides shared test helpers for building synthetic .note
// containers and temporary stores.
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"strconv"
	"testing"

	"github.com/tuannvm/viwoods-obsidian/internal/catalog"
	"github.com/tuannvm/viwoods-obsidian/internal/manifest"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/storage"
	"github.com/tuannvm/viwoods-obsidian/internal/stroke"
)

// TestCatalog creates a temporary SQLite catalog that is automatically cleaned up.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "viwoods-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFS creates a temporary root-confined provider.
func TestFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestManifestStore creates a manifest store over a temporary state dir.
func TestManifestStore(t *testing.T) *manifest.Store {
	t.Helper()
	_, fs := TestFS(t)
	return manifest.NewStore(fs)
}

// NotePage describes one page of a synthetic container. RawStrokes, when
// non-nil, is written verbatim instead of encoding Strokes (used to inject
// truncated blobs).
type NotePage struct {
	Num        int
	Image      []byte
	Strokes    models.StrokeSet
	RawStrokes []byte
	Audio      []byte
	AudioName  string
}

// BuildNote assembles an in-memory .note container.
func BuildNote(t *testing.T, info models.NoteInfo, pages []NotePage, thumbnail []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}

	meta, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	write("NoteInfo.json", meta)

	if thumbnail != nil {
		write("COVER.png", thumbnail)
	}
	for _, p := range pages {
		if p.Image != nil {
			write(pageImageName(p.Num), p.Image)
		}
		switch {
		case p.RawStrokes != nil:
			write(strokeBlobName(p.Num), p.RawStrokes)
		case p.Strokes != nil:
			write(strokeBlobName(p.Num), stroke.Encode(p.Strokes))
		}
		if p.Audio != nil {
			name := p.AudioName
			if name == "" {
				name = "recording.mp3"
			}
			write(audioEntryName(p.Num, name), p.Audio)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pageImageName(num int) string { return "PAGE_" + strconv.Itoa(num) + ".png" }

func strokeBlobName(num int) string { return "PATH_" + strconv.Itoa(num) + ".bin" }

func audioEntryName(num int, name string) string {
	return "AUDIO_" + strconv.Itoa(num) + "_" + name
}

// SimpleStrokes returns a small two-stroke set for tests.
func SimpleStrokes() models.StrokeSet {
	return models.StrokeSet{
		{PenID: 1, Points: []models.Point{{X: 10, Y: 10, Pressure: 0.5}, {X: 20, Y: 15, Pressure: 0.6}, {X: 30, Y: 25, Pressure: 0.7}}},
		{PenID: 5, Points: []models.Point{{X: 5, Y: 40, Pressure: 1}, {X: 50, Y: 40, Pressure: 1}}},
	}
}
