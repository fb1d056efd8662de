package svg

import (
	"regexp"
	"strings"
	"testing"

	"github.com/tuannvm/viwoods-obsidian/internal/models"
)

var pathRe = regexp.MustCompile(`<path d="([^"]*)"`)

func renderSample(t *testing.T, opts Options) string {
	t.Helper()
	set := models.StrokeSet{
		{PenID: 1, Points: []models.Point{{X: 10, Y: 10}, {X: 20, Y: 15}, {X: 30, Y: 25}, {X: 45, Y: 30}}},
		{PenID: 5, Points: []models.Point{{X: 5, Y: 40}, {X: 50, Y: 40}}},
	}
	return Render(set, models.DefaultPenMapping(), 1404, 1872, opts)
}

func TestRenderDeterministic(t *testing.T) {
	opts := Options{Width: 794, Smoothness: 0.6, Background: "#ffffff"}
	a := renderSample(t, opts)
	b := renderSample(t, opts)
	if a != b {
		t.Fatal("identical inputs must produce byte-identical markup")
	}
}

func TestRenderRoundTripCounts(t *testing.T) {
	set := models.StrokeSet{
		{PenID: 1, Points: []models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: 4}, {X: 5, Y: 5}}},
		{PenID: 2, Points: []models.Point{{X: 9, Y: 9}, {X: 8, Y: 8}}},
		{PenID: 3, Points: []models.Point{{X: 7, Y: 7}, {X: 6, Y: 6}, {X: 5, Y: 5}}},
	}
	out := Render(set, nil, 100, 100, Options{Width: 100, Smoothness: 0.5})

	paths := pathRe.FindAllStringSubmatch(out, -1)
	if len(paths) != len(set) {
		t.Fatalf("path count = %d, want one per stroke (%d)", len(paths), len(set))
	}
	total := 0
	for i, m := range paths {
		d := m[1]
		commands := strings.Count(d, "M") + strings.Count(d, "Q") + strings.Count(d, "L")
		if commands != len(set[i].Points) {
			t.Errorf("stroke %d: %d commands for %d points in %q", i, commands, len(set[i].Points), d)
		}
		total += commands
	}
	if total != set.PointCount() {
		t.Errorf("total commands = %d, want %d", total, set.PointCount())
	}
}

func TestRenderSingleTapPaintsDot(t *testing.T) {
	set := models.StrokeSet{{PenID: 1, Points: []models.Point{{X: 50, Y: 50}}}}
	out := Render(set, nil, 100, 100, Options{Width: 100})
	m := pathRe.FindStringSubmatch(out)
	if m == nil {
		t.Fatal("no path emitted for single-point stroke")
	}
	if m[1] != "M50.00 50.00 L50.00 50.00" {
		t.Errorf("dot path = %q", m[1])
	}
}

func TestRenderZOrderPreserved(t *testing.T) {
	set := models.StrokeSet{
		{PenID: 5, Points: []models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}, // highlighter first
		{PenID: 1, Points: []models.Point{{X: 3, Y: 3}, {X: 4, Y: 4}}}, // ballpoint on top
	}
	pens := models.DefaultPenMapping()
	out := Render(set, pens, 100, 100, Options{Width: 100})

	hl := strings.Index(out, pens.Lookup(5).Color)
	bp := strings.Index(out, pens.Lookup(1).Color)
	if hl < 0 || bp < 0 {
		t.Fatalf("pen colors missing from output:\n%s", out)
	}
	if hl > bp {
		t.Errorf("highlighter must render before ballpoint (draw order is z-order)")
	}
}

func TestRenderUnknownPenFallsBack(t *testing.T) {
	set := models.StrokeSet{{PenID: 9999, Points: []models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}}
	pens := models.DefaultPenMapping()
	out := Render(set, pens, 100, 100, Options{Width: 100})
	if !strings.Contains(out, pens.Default.Color) {
		t.Errorf("unknown pen id must use the default style:\n%s", out)
	}
}

func TestRenderBackground(t *testing.T) {
	out := renderSample(t, Options{Width: 794, Background: "#fdf6e3"})
	if !strings.Contains(out, `<rect width="794"`) || !strings.Contains(out, `fill="#fdf6e3"`) {
		t.Errorf("background rect missing:\n%s", out)
	}
	plain := renderSample(t, Options{Width: 794})
	if strings.Contains(plain, "<rect") {
		t.Errorf("no background requested but rect emitted")
	}
}

func TestRenderScaling(t *testing.T) {
	// canvas 1000 wide rendered at width 500: coordinates halve, height follows
	// the aspect ratio.
	set := models.StrokeSet{{PenID: 1, Points: []models.Point{{X: 100, Y: 200}, {X: 300, Y: 400}}}}
	out := Render(set, nil, 1000, 2000, Options{Width: 500})
	if !strings.Contains(out, `viewBox="0 0 500 1000.00"`) {
		t.Errorf("viewBox not scaled:\n%s", out)
	}
	if !strings.Contains(out, "M50.00 100.00") {
		t.Errorf("first point not scaled:\n%s", out)
	}
}

func TestRenderSmoothnessZeroIsPolyline(t *testing.T) {
	set := models.StrokeSet{{PenID: 1, Points: []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}}}
	out := Render(set, nil, 100, 100, Options{Width: 100, Smoothness: 0})
	m := pathRe.FindStringSubmatch(out)
	if m == nil {
		t.Fatal("no path emitted")
	}
	// With smoothness 0 the curve endpoint is the raw sample itself.
	if m[1] != "M0.00 0.00 Q10.00 0.00 10.00 0.00 L10.00 10.00" {
		t.Errorf("path = %q", m[1])
	}
}

func TestRenderEmptySet(t *testing.T) {
	out := Render(nil, nil, 100, 100, Options{Width: 100})
	if strings.Contains(out, "<path") {
		t.Errorf("empty set must emit no paths")
	}
	if !strings.HasPrefix(out, "<svg ") || !strings.HasSuffix(out, "</svg>\n") {
		t.Errorf("markup not well-formed:\n%s", out)
	}
}
