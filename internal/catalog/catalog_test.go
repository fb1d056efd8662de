package catalog_test

import (
	"testing"
	"time"

	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/testutil"
)

func sampleManifest(name string, pages int) *models.ImportManifest {
	m := models.NewImportManifest(name)
	m.TotalPages = pages
	m.SourceFile = name + ".note"
	m.LastImport = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= pages; i++ {
		m.ImportedPages[i] = models.ImportedPage{
			FileName:   "p.png",
			ImageHash:  "hash",
			ImportDate: m.LastImport,
			HasAudio:   i == 1,
		}
	}
	return m
}

func TestUpsertAndListBooks(t *testing.T) {
	db := testutil.TestCatalog(t)

	if err := db.UpsertBook(sampleManifest("Beta", 2)); err != nil {
		t.Fatalf("UpsertBook: %v", err)
	}
	if err := db.UpsertBook(sampleManifest("Alpha", 3)); err != nil {
		t.Fatal(err)
	}

	books, err := db.ListBooks()
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("books = %+v, want 2", books)
	}
	// Ordered by name.
	if books[0].Name != "Alpha" || books[1].Name != "Beta" {
		t.Errorf("order = %s, %s", books[0].Name, books[1].Name)
	}
	if books[0].TotalPages != 3 || books[0].SourceFile != "Alpha.note" {
		t.Errorf("Alpha row = %+v", books[0])
	}
	// The DATETIME column must scan back as a time, not a string.
	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !books[0].LastImport.Equal(want) {
		t.Errorf("LastImport = %v, want %v", books[0].LastImport, want)
	}
}

func TestListBooksNeverImported(t *testing.T) {
	db := testutil.TestCatalog(t)

	m := sampleManifest("Alpha", 1)
	m.LastImport = time.Time{}
	if err := db.UpsertBook(m); err != nil {
		t.Fatal(err)
	}

	books, err := db.ListBooks()
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 1 || !books[0].LastImport.IsZero() {
		t.Errorf("books = %+v, want one row with zero LastImport", books)
	}
}

func TestUpsertReplacesPages(t *testing.T) {
	db := testutil.TestCatalog(t)

	if err := db.UpsertBook(sampleManifest("Alpha", 5)); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.PageCount("Alpha"); n != 5 {
		t.Fatalf("page count = %d, want 5", n)
	}

	// Re-upsert with fewer pages: stale rows must disappear.
	if err := db.UpsertBook(sampleManifest("Alpha", 2)); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.PageCount("Alpha"); n != 2 {
		t.Errorf("page count after shrink = %d, want 2", n)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	db := testutil.TestCatalog(t)

	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s := &models.ImportSummary{
			RunID:          "run-" + string(rune('a'+i)),
			BookName:       "Alpha",
			NewPages:       []int{1},
			ModifiedPages:  []int{2, 3},
			UnchangedPages: []int{4},
			Errors:         []models.PageError{{PageNum: 2, Stage: "stroke"}},
		}
		if err := db.RecordRun(s, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	if err := db.RecordRun(&models.ImportSummary{RunID: "other", BookName: "Beta"}, base); err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRuns("Alpha", 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %+v, want limit 2", runs)
	}
	// Newest first.
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("order = %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].NewPages != 1 || runs[0].ModifiedPages != 2 || runs[0].ErrorCount != 1 {
		t.Errorf("counts = %+v", runs[0])
	}
}

func TestDeleteBook(t *testing.T) {
	db := testutil.TestCatalog(t)

	if err := db.UpsertBook(sampleManifest("Alpha", 2)); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordRun(&models.ImportSummary{RunID: "r1", BookName: "Alpha"}, time.Now()); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteBook("Alpha"); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	books, err := db.ListBooks()
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 0 {
		t.Errorf("books = %+v, want none", books)
	}
	if n, _ := db.PageCount("Alpha"); n != 0 {
		t.Errorf("pages left behind: %d", n)
	}
	runs, _ := db.ListRuns("Alpha", 0)
	if len(runs) != 0 {
		t.Errorf("runs left behind: %+v", runs)
	}
}

func TestRebuild(t *testing.T) {
	db := testutil.TestCatalog(t)

	manifests := []*models.ImportManifest{
		sampleManifest("Alpha", 1),
		sampleManifest("Beta", 2),
	}
	if err := db.Rebuild(manifests); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	books, err := db.ListBooks()
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 {
		t.Errorf("books = %+v, want 2", books)
	}
}
