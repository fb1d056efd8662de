// Package stroke decodes the proprietary binary stroke blobs of a .note page.
//
// A blob is a sequence of fixed-layout records, all values little-endian:
//
//	penId      uint32
//	pointCount uint32
//	points     pointCount × { x float32, y float32, pressure float32 }
//
// Records follow each other with no padding. The device writes strokes in
// drawing order, which the decoder preserves: the sequence is the z-order of
// the page.
package stroke

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tuannvm/viwoods-obsidian/internal/apperr"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
)

const (
	headerSize = 8  // penId + pointCount
	pointSize  = 12 // x + y + pressure
)

// maxPoints bounds a single record. The tablet samples at ~200 Hz, so even an
// hour-long continuous gesture stays far below this.
const maxPoints = 1 << 20

// Decode parses a stroke blob into an ordered StrokeSet. It fails with
// apperr.ErrMalformedStroke when a record's declared point count would read
// past the end of the buffer, or when trailing bytes do not form a complete
// header. The error is page-local: callers keep the page's image and audio
// and skip only its vector rendering.
func Decode(data []byte) (models.StrokeSet, error) {
	var set models.StrokeSet
	off := 0
	for off < len(data) {
		if len(data)-off < headerSize {
			return nil, fmt.Errorf("stroke: %w: %d trailing bytes at offset %d", apperr.ErrMalformedStroke, len(data)-off, off)
		}
		penID := binary.LittleEndian.Uint32(data[off:])
		count := binary.LittleEndian.Uint32(data[off+4:])
		off += headerSize

		if count > maxPoints {
			return nil, fmt.Errorf("stroke: %w: record at offset %d declares %d points", apperr.ErrMalformedStroke, off-headerSize, count)
		}
		need := int(count) * pointSize
		if len(data)-off < need {
			return nil, fmt.Errorf("stroke: %w: record at offset %d needs %d bytes, %d remain",
				apperr.ErrMalformedStroke, off-headerSize, need, len(data)-off)
		}

		points := make([]models.Point, count)
		for i := range points {
			points[i] = models.Point{
				X:        lefloat32(data[off:]),
				Y:        lefloat32(data[off+4:]),
				Pressure: lefloat32(data[off+8:]),
			}
			off += pointSize
		}
		set = append(set, models.Stroke{PenID: penID, Points: points})
	}
	return set, nil
}

// Encode serializes a StrokeSet back into the blob layout. Used by tests and
// by tooling that builds synthetic containers.
func Encode(set models.StrokeSet) []byte {
	size := 0
	for _, s := range set {
		size += headerSize + len(s.Points)*pointSize
	}
	out := make([]byte, size)
	off := 0
	for _, s := range set {
		binary.LittleEndian.PutUint32(out[off:], s.PenID)
		binary.LittleEndian.PutUint32(out[off+4:], uint32(len(s.Points)))
		off += headerSize
		for _, p := range s.Points {
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(p.X))
			binary.LittleEndian.PutUint32(out[off+4:], math.Float32bits(p.Y))
			binary.LittleEndian.PutUint32(out[off+8:], math.Float32bits(p.Pressure))
			off += pointSize
		}
	}
	return out
}

func lefloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
