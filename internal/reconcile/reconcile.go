// Package reconcile classifies the pages of a freshly decoded book against
// the book's import manifest, producing the plan that drives selective
// re-import.
//
// Only the page image hash participates in change detection. A page whose
// image is re-exported byte-identical while its embedded stroke data changed
// underneath is reported unchanged. This mirrors the source device's export
// behavior and is intentional: adding stroke hashing would change observable
// semantics for every existing manifest.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tuannvm/viwoods-obsidian/internal/models"
)

// Kind is the classification of one page.
type Kind string

const (
	New       Kind = "new"
	Modified  Kind = "modified"
	Unchanged Kind = "unchanged"
	Deleted   Kind = "deleted"
)

// PageChange is the classification result for one page number.
type PageChange struct {
	Num            int
	Kind           Kind
	NewHash        string // empty for deleted pages
	HasAudioChange bool   // hash equal but audio presence flipped
}

// Plan is the outcome of classifying a book against its manifest. Changes
// covers the union of the book's page numbers and the manifest's page
// numbers; every page appears exactly once.
type Plan struct {
	RunID   string
	Changes []PageChange
}

// BuildPlan classifies every page of book against m:
//
//   - not in the manifest → New
//   - in the manifest, hash differs → Modified
//   - hash equal but audio presence differs → Modified with HasAudioChange
//   - hash and audio presence equal → Unchanged
//   - in the manifest but absent from the book → Deleted
func BuildPlan(book *models.Book, m *models.ImportManifest) *Plan {
	plan := &Plan{RunID: uuid.NewString()}

	seen := make(map[int]struct{}, len(book.Pages))
	for _, p := range book.Pages {
		seen[p.Num] = struct{}{}
		prev, ok := m.ImportedPages[p.Num]
		switch {
		case !ok:
			plan.Changes = append(plan.Changes, PageChange{Num: p.Num, Kind: New, NewHash: p.ImageHash})
		case prev.ImageHash != p.ImageHash:
			plan.Changes = append(plan.Changes, PageChange{Num: p.Num, Kind: Modified, NewHash: p.ImageHash})
		case prev.HasAudio != p.HasAudio():
			plan.Changes = append(plan.Changes, PageChange{
				Num: p.Num, Kind: Modified, NewHash: p.ImageHash, HasAudioChange: true,
			})
		default:
			plan.Changes = append(plan.Changes, PageChange{Num: p.Num, Kind: Unchanged, NewHash: p.ImageHash})
		}
	}

	for num := range m.ImportedPages {
		if _, ok := seen[num]; !ok {
			plan.Changes = append(plan.Changes, PageChange{Num: num, Kind: Deleted})
		}
	}

	sort.Slice(plan.Changes, func(i, j int) bool { return plan.Changes[i].Num < plan.Changes[j].Num })
	return plan
}

// Pages returns the page numbers classified as kind, in ascending order.
func (p *Plan) Pages(kind Kind) []int {
	out := []int{}
	for _, c := range p.Changes {
		if c.Kind == kind {
			out = append(out, c.Num)
		}
	}
	return out
}

// Summary folds the plan and any page-level errors into an ImportSummary.
func (p *Plan) Summary(bookName string, totalPages int, errs []models.PageError) *models.ImportSummary {
	return &models.ImportSummary{
		RunID:          p.RunID,
		BookName:       bookName,
		TotalPages:     totalPages,
		NewPages:       p.Pages(New),
		ModifiedPages:  p.Pages(Modified),
		UnchangedPages: p.Pages(Unchanged),
		DeletedPages:   p.Pages(Deleted),
		Errors:         errs,
	}
}

// HistoryLine renders a one-line human summary for the manifest history.
func (p *Plan) HistoryLine() string {
	return fmt.Sprintf("%d new, %d modified, %d unchanged, %d deleted",
		len(p.Pages(New)), len(p.Pages(Modified)), len(p.Pages(Unchanged)), len(p.Pages(Deleted)))
}
