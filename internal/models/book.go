// Package models defines the domain types for the Viwoods note importer.
package models

import "time"

// Book is the fully decoded content of one .note container. It exists only
// for the duration of a single import pass; the durable record of what was
// imported lives in ImportManifest.
type Book struct {
	Name      string
	Meta      NoteInfo
	Pages     []Page // ordered by page number, unique within the book
	Thumbnail []byte // optional cover image
}

// NoteInfo is the required top-level metadata entry of a .note container.
type NoteInfo struct {
	NoteName     string `json:"noteName"`
	PageCount    int    `json:"pageCount"`
	CanvasWidth  int    `json:"canvasWidth"`
	CanvasHeight int    `json:"canvasHeight"`
	CreateTime   int64  `json:"createTime,omitempty"`
}

// Page is one page of a book. Image is always present; strokes and audio are
// optional. StrokeErr records a page-local stroke decode failure: the page
// still imports, only its vector rendering is skipped.
type Page struct {
	Num       int
	Image     []byte
	ImageHash string
	Strokes   StrokeSet
	StrokeErr error
	Audio     *Audio
}

// HasAudio reports whether the page carries an audio recording.
func (p *Page) HasAudio() bool { return p.Audio != nil }

// Audio is a page's audio recording with its original encoding preserved.
type Audio struct {
	Data         []byte
	OriginalName string
}

// Point is one sampled pen position in device coordinates.
type Point struct {
	X        float32
	Y        float32
	Pressure float32
}

// Stroke is one continuous pen gesture.
type Stroke struct {
	PenID  uint32
	Points []Point
}

// StrokeSet is the ordered stroke sequence of a page. Order is z-order:
// later strokes draw on top.
type StrokeSet []Stroke

// PointCount returns the total number of points across all strokes.
func (s StrokeSet) PointCount() int {
	n := 0
	for _, st := range s {
		n += len(st.Points)
	}
	return n
}

// BookTime converts the container's millisecond timestamp to time.Time,
// returning the zero value when the container carries none.
func (n NoteInfo) BookTime() time.Time {
	if n.CreateTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(n.CreateTime)
}
