// Package svg renders a decoded StrokeSet as scalable vector markup.
package svg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tuannvm/viwoods-obsidian/internal/models"
)

// Options controls rendering. Width is the output viewBox width in CSS pixels;
// the height follows from the source canvas aspect ratio. Smoothness in [0,1]
// blends each curve endpoint from the raw sample (0, polyline) towards the
// segment midpoint (1, maximally smoothed). Background, when non-empty, is
// painted as a full-canvas rect behind all strokes.
type Options struct {
	Width      int
	Smoothness float64
	Background string
}

// Render converts a StrokeSet to SVG markup. Strokes render in StrokeSet
// order: later strokes draw on top, exactly as on the device. Rendering is
// pure and deterministic: identical inputs produce byte-identical output.
func Render(set models.StrokeSet, pens *models.PenMapping, canvasW, canvasH int, opts Options) string {
	if opts.Width <= 0 {
		opts.Width = 794
	}
	if canvasW <= 0 || canvasH <= 0 {
		canvasW, canvasH = opts.Width, opts.Width
	}
	if opts.Smoothness < 0 {
		opts.Smoothness = 0
	} else if opts.Smoothness > 1 {
		opts.Smoothness = 1
	}
	if pens == nil {
		pens = models.DefaultPenMapping()
	}

	// Single linear scale from device space to the viewBox.
	scale := float64(opts.Width) / float64(canvasW)
	height := float64(canvasH) * scale

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %s" width="%d" height="%s">`,
		opts.Width, num(height), opts.Width, num(height))
	b.WriteByte('\n')
	if opts.Background != "" {
		fmt.Fprintf(&b, `<rect width="%d" height="%s" fill="%s"/>`, opts.Width, num(height), opts.Background)
		b.WriteByte('\n')
	}
	for _, s := range set {
		if len(s.Points) == 0 {
			continue
		}
		style := pens.Lookup(s.PenID)
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="%s" stroke-opacity="%s" stroke-linecap="round" stroke-linejoin="round"/>`,
			pathData(s.Points, scale, opts.Smoothness),
			style.Color, num(style.Thickness*scale), num(style.Opacity))
		b.WriteByte('\n')
	}
	b.WriteString("</svg>\n")
	return b.String()
}

// pathData builds the path for one stroke. Every source point contributes
// exactly one command (M, Q, or L), so stroke and point counts are
// recoverable from the markup.
func pathData(pts []models.Point, scale, smoothness float64) string {
	var b strings.Builder
	x0, y0 := float64(pts[0].X)*scale, float64(pts[0].Y)*scale
	b.WriteString("M")
	b.WriteString(num(x0))
	b.WriteByte(' ')
	b.WriteString(num(y0))

	if len(pts) == 1 {
		// Single tap: zero-length segment so the round cap paints a dot.
		b.WriteString(" L")
		b.WriteString(num(x0))
		b.WriteByte(' ')
		b.WriteString(num(y0))
		return b.String()
	}

	// Interior points become quadratic curves whose endpoint slides from the
	// sample itself towards the midpoint of the following segment.
	for i := 1; i < len(pts)-1; i++ {
		cx, cy := float64(pts[i].X)*scale, float64(pts[i].Y)*scale
		nx, ny := float64(pts[i+1].X)*scale, float64(pts[i+1].Y)*scale
		ex := cx + smoothness*((cx+nx)/2-cx)
		ey := cy + smoothness*((cy+ny)/2-cy)
		b.WriteString(" Q")
		b.WriteString(num(cx))
		b.WriteByte(' ')
		b.WriteString(num(cy))
		b.WriteByte(' ')
		b.WriteString(num(ex))
		b.WriteByte(' ')
		b.WriteString(num(ey))
	}

	last := pts[len(pts)-1]
	b.WriteString(" L")
	b.WriteString(num(float64(last.X) * scale))
	b.WriteByte(' ')
	b.WriteString(num(float64(last.Y) * scale))
	return b.String()
}

// num formats a coordinate with two fixed decimals. Fixed precision keeps the
// output byte-stable across runs and platforms.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
