package manifest_test

import (
	"testing"
	"time"

	"github.com/tuannvm/viwoods-obsidian/internal/manifest"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/testutil"
)

func TestLoadAbsentReturnsDefault(t *testing.T) {
	store := testutil.TestManifestStore(t)
	m, err := store.Load("Never Imported")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.BookName != "Never Imported" {
		t.Errorf("name = %q", m.BookName)
	}
	if len(m.ImportedPages) != 0 || !m.LastImport.IsZero() {
		t.Errorf("absent manifest must be the empty default: %+v", m)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := testutil.TestManifestStore(t)

	m := models.NewImportManifest("Meeting Notes")
	m.TotalPages = 3
	m.SourceFile = "Meeting Notes.note"
	m.LastImport = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	m.ImportedPages[1] = models.ImportedPage{FileName: "Meeting_Notes_p001.png", ImageHash: "abc", HasAudio: true}
	m.ImportedPages[2] = models.ImportedPage{FileName: "Meeting_Notes_p002.png", ImageHash: "def"}
	m.AppendHistory(models.HistoryEntry{Date: m.LastImport, Action: "import", Pages: []int{1, 2}, Summary: "2 new"}, 50)

	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load("Meeting Notes")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TotalPages != 3 || got.SourceFile != "Meeting Notes.note" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Version != models.ManifestVersion {
		t.Errorf("version = %d, want %d", got.Version, models.ManifestVersion)
	}
	if len(got.ImportedPages) != 2 {
		t.Fatalf("page count = %d, want 2", len(got.ImportedPages))
	}
	if p := got.ImportedPages[1]; p.ImageHash != "abc" || !p.HasAudio {
		t.Errorf("page 1 = %+v", p)
	}
	if len(got.History) != 1 || got.History[0].Summary != "2 new" {
		t.Errorf("history = %+v", got.History)
	}
}

func TestBookKeySanitizes(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Meeting Notes", "Meeting_Notes"},
		{"a/b\\c", "a_b_c"},
		{"  spaced  ", "spaced"},
		{"résumé", "r_sum"},
		{"...", "book"},
		{"", "book"},
		{"my-book.v2", "my-book.v2"},
	}
	for _, tc := range cases {
		if got := manifest.BookKey(tc.in); got != tc.want {
			t.Errorf("BookKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	// Sanitization is documented as lossy: these distinct names share a key
	// and therefore a manifest file.
	if a, b := manifest.BookKey("A/B"), manifest.BookKey("A_B"); a != b {
		t.Errorf("BookKey collision contract changed: %q vs %q", a, b)
	}
}

func TestBooks(t *testing.T) {
	store := testutil.TestManifestStore(t)
	for _, name := range []string{"Alpha", "Beta"} {
		if err := store.Save(models.NewImportManifest(name)); err != nil {
			t.Fatal(err)
		}
	}
	// The watcher state file shares the directory and must not be listed.
	if err := store.SaveWatcherState(models.NewWatcherState("/src")); err != nil {
		t.Fatal(err)
	}

	books, err := store.Books()
	if err != nil {
		t.Fatalf("Books: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("books = %v, want 2 entries", books)
	}
	seen := map[string]bool{}
	for _, b := range books {
		seen[b] = true
	}
	if !seen["Alpha"] || !seen["Beta"] {
		t.Errorf("books = %v", books)
	}
}

func TestWatcherStateRoundTrip(t *testing.T) {
	store := testutil.TestManifestStore(t)

	ws := models.NewWatcherState("/mnt/aipaper")
	ws.IsEnabled = true
	ws.LastScan = time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	ws.KnownFiles["a.note"] = models.KnownFile{
		FilePath:     "/mnt/aipaper/a.note",
		LastModified: ws.LastScan,
		FileSize:     1234,
		BookName:     "Alpha",
	}
	if err := store.SaveWatcherState(ws); err != nil {
		t.Fatalf("SaveWatcherState: %v", err)
	}

	got, err := store.LoadWatcherState("/mnt/aipaper")
	if err != nil {
		t.Fatalf("LoadWatcherState: %v", err)
	}
	if !got.IsEnabled || len(got.KnownFiles) != 1 {
		t.Errorf("round trip lost state: %+v", got)
	}
	if kf := got.KnownFiles["a.note"]; kf.FileSize != 1234 || kf.BookName != "Alpha" {
		t.Errorf("known file = %+v", kf)
	}
}

func TestWatcherStateFolderChangeResets(t *testing.T) {
	store := testutil.TestManifestStore(t)

	ws := models.NewWatcherState("/old/folder")
	ws.KnownFiles["a.note"] = models.KnownFile{FilePath: "/old/folder/a.note"}
	if err := store.SaveWatcherState(ws); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadWatcherState("/new/folder")
	if err != nil {
		t.Fatalf("LoadWatcherState: %v", err)
	}
	if got.SourceFolder != "/new/folder" {
		t.Errorf("folder = %q, want the new folder", got.SourceFolder)
	}
	if len(got.KnownFiles) != 0 {
		t.Errorf("known files from the old folder must be discarded: %+v", got.KnownFiles)
	}
}

func TestLoadWatcherStateAbsent(t *testing.T) {
	store := testutil.TestManifestStore(t)
	got, err := store.LoadWatcherState("/mnt/aipaper")
	if err != nil {
		t.Fatalf("LoadWatcherState: %v", err)
	}
	if got.SourceFolder != "/mnt/aipaper" || len(got.KnownFiles) != 0 || got.IsEnabled {
		t.Errorf("absent state must be the empty default: %+v", got)
	}
}
