package reconcile

import (
	"reflect"
	"testing"

	"github.com/tuannvm/viwoods-obsidian/internal/models"
)

func bookWith(pages ...models.Page) *models.Book {
	return &models.Book{Name: "book", Pages: pages}
}

func manifestWith(hashes map[int]string) *models.ImportManifest {
	m := models.NewImportManifest("book")
	for num, h := range hashes {
		m.ImportedPages[num] = models.ImportedPage{ImageHash: h}
	}
	return m
}

func TestBuildPlanMixedChanges(t *testing.T) {
	// Manifest knows pages 1 and 2; the container now has page 2 with a new
	// hash and a brand-new page 3.
	m := manifestWith(map[int]string{1: "h1", 2: "h2"})
	book := bookWith(
		models.Page{Num: 1, ImageHash: "h1"},
		models.Page{Num: 2, ImageHash: "h2x"},
		models.Page{Num: 3, ImageHash: "h3"},
	)

	plan := BuildPlan(book, m)

	if got := plan.Pages(Unchanged); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("unchanged = %v, want [1]", got)
	}
	if got := plan.Pages(Modified); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("modified = %v, want [2]", got)
	}
	if got := plan.Pages(New); !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("new = %v, want [3]", got)
	}
	if got := plan.Pages(Deleted); len(got) != 0 {
		t.Errorf("deleted = %v, want none", got)
	}
}

func TestBuildPlanDeleted(t *testing.T) {
	// Manifest knows pages 1..3; page 2 vanished from the container.
	m := manifestWith(map[int]string{1: "h1", 2: "h2", 3: "h3"})
	book := bookWith(
		models.Page{Num: 1, ImageHash: "h1"},
		models.Page{Num: 3, ImageHash: "h3"},
	)

	plan := BuildPlan(book, m)

	if got := plan.Pages(Deleted); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("deleted = %v, want [2]", got)
	}
	if got := plan.Pages(Unchanged); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("unchanged = %v, want [1 3]", got)
	}
}

func TestBuildPlanAudioFlipIsModified(t *testing.T) {
	m := models.NewImportManifest("book")
	m.ImportedPages[1] = models.ImportedPage{ImageHash: "h1", HasAudio: false}
	m.ImportedPages[2] = models.ImportedPage{ImageHash: "h2", HasAudio: true}

	book := bookWith(
		models.Page{Num: 1, ImageHash: "h1", Audio: &models.Audio{Data: []byte("mp3"), OriginalName: "rec.mp3"}},
		models.Page{Num: 2, ImageHash: "h2"}, // audio removed
	)

	plan := BuildPlan(book, m)

	for _, c := range plan.Changes {
		if c.Kind != Modified {
			t.Errorf("page %d kind = %s, want modified on audio flip", c.Num, c.Kind)
		}
		if !c.HasAudioChange {
			t.Errorf("page %d must carry HasAudioChange", c.Num)
		}
	}
}

func TestBuildPlanCoversUnionExactlyOnce(t *testing.T) {
	m := manifestWith(map[int]string{1: "h1", 2: "h2", 5: "h5"})
	book := bookWith(
		models.Page{Num: 2, ImageHash: "h2"},
		models.Page{Num: 3, ImageHash: "h3"},
		models.Page{Num: 5, ImageHash: "h5x"},
	)

	plan := BuildPlan(book, m)

	seen := map[int]int{}
	for _, c := range plan.Changes {
		seen[c.Num]++
	}
	for _, num := range []int{1, 2, 3, 5} {
		if seen[num] != 1 {
			t.Errorf("page %d appears %d times, want exactly once", num, seen[num])
		}
	}
	if len(plan.Changes) != 4 {
		t.Errorf("plan has %d changes, want 4", len(plan.Changes))
	}
	// Changes are sorted by page number.
	for i := 1; i < len(plan.Changes); i++ {
		if plan.Changes[i-1].Num >= plan.Changes[i].Num {
			t.Errorf("changes not sorted: %+v", plan.Changes)
		}
	}
}

func TestBuildPlanFirstImportAllNew(t *testing.T) {
	m := models.NewImportManifest("book")
	book := bookWith(
		models.Page{Num: 1, ImageHash: "h1"},
		models.Page{Num: 2, ImageHash: "h2"},
	)
	plan := BuildPlan(book, m)
	if got := plan.Pages(New); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("new = %v, want [1 2]", got)
	}
	if plan.RunID == "" {
		t.Error("plan must carry a run id")
	}
}

func TestSummary(t *testing.T) {
	m := manifestWith(map[int]string{1: "h1", 2: "h2"})
	book := bookWith(
		models.Page{Num: 1, ImageHash: "h1"},
		models.Page{Num: 3, ImageHash: "h3"},
	)
	plan := BuildPlan(book, m)

	errs := []models.PageError{{PageNum: 3, Stage: "stroke", Message: "truncated"}}
	s := plan.Summary("book", 2, errs)
	if s.RunID != plan.RunID || s.BookName != "book" || s.TotalPages != 2 {
		t.Errorf("summary header = %+v", s)
	}
	if !reflect.DeepEqual(s.NewPages, []int{3}) || !reflect.DeepEqual(s.DeletedPages, []int{2}) {
		t.Errorf("summary pages = %+v", s)
	}
	if len(s.Errors) != 1 {
		t.Errorf("errors = %+v", s.Errors)
	}
	if !s.Changed() {
		t.Error("summary with new and deleted pages must report Changed")
	}
}

func TestHistoryLine(t *testing.T) {
	m := manifestWith(map[int]string{1: "h1", 2: "h2"})
	book := bookWith(
		models.Page{Num: 1, ImageHash: "h1"},
		models.Page{Num: 2, ImageHash: "h2x"},
		models.Page{Num: 3, ImageHash: "h3"},
	)
	got := BuildPlan(book, m).HistoryLine()
	if got != "1 new, 1 modified, 1 unchanged, 0 deleted" {
		t.Errorf("history line = %q", got)
	}
}
