// Package container reads the Viwoods .note archive format.
//
// A .note file is a ZIP archive with a fixed naming convention:
//
//	NoteInfo.json          required book metadata
//	PAGE_<n>.png           page raster image
//	PATH_<n>.bin           stroke blob for page n (optional)
//	AUDIO_<n>_<name>.<ext> audio recording for page n (optional)
//	COVER.png              book thumbnail (optional)
//
// Unknown entries are ignored so that newer device firmware does not break
// older importers. Plain .zip files with the same internal layout are
// accepted as well.
package container

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tuannvm/viwoods-obsidian/internal/apperr"
	"github.com/tuannvm/viwoods-obsidian/internal/checksum"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/stroke"
)

// metadataEntry is the required top-level metadata file.
const metadataEntry = "NoteInfo.json"

// entryKind classifies one archive entry.
type entryKind int

const (
	kindUnknown entryKind = iota
	kindMetadata
	kindPageImage
	kindStrokeBlob
	kindAudio
	kindThumbnail
)

var (
	pageImageRe  = regexp.MustCompile(`^PAGE_(\d+)\.png$`)
	strokeBlobRe = regexp.MustCompile(`^PATH_(\d+)\.bin$`)
	audioRe      = regexp.MustCompile(`^AUDIO_(\d+)_(.+)\.(mp3|wav|m4a|ogg)$`)
)

// classify maps an entry name to its kind and page number. Classification is
// pure: it depends only on the base name, never on entry order or content.
func classify(name string) (entryKind, int, string) {
	base := path.Base(name)
	switch {
	case base == metadataEntry:
		return kindMetadata, 0, ""
	case base == "COVER.png" || base == "thumbnail.png":
		return kindThumbnail, 0, ""
	}
	if m := pageImageRe.FindStringSubmatch(base); m != nil {
		n, _ := strconv.Atoi(m[1])
		return kindPageImage, n, ""
	}
	if m := strokeBlobRe.FindStringSubmatch(base); m != nil {
		n, _ := strconv.Atoi(m[1])
		return kindStrokeBlob, n, ""
	}
	if m := audioRe.FindStringSubmatch(base); m != nil {
		n, _ := strconv.Atoi(m[1])
		return kindAudio, n, m[2] + "." + m[3]
	}
	return kindUnknown, 0, ""
}

// Decode parses container bytes into a Book. name is the source file name and
// is used as the book name when the metadata carries none.
//
// It fails with apperr.ErrCorruptContainer when the archive index cannot be
// parsed and with apperr.ErrUnsupportedFormat when NoteInfo.json is absent or
// unreadable. A page-local stroke decode failure does not fail the book: the
// page is returned with StrokeErr set and no strokes.
func Decode(name string, data []byte) (*models.Book, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("container: %w: %s: %v", apperr.ErrCorruptContainer, name, err)
	}

	var meta *models.NoteInfo
	var thumbnail []byte
	pages := make(map[int]*models.Page)

	pageAt := func(n int) *models.Page {
		if p, ok := pages[n]; ok {
			return p
		}
		p := &models.Page{Num: n}
		pages[n] = p
		return p
	}

	for _, f := range zr.File {
		kind, num, audioName := classify(f.Name)
		if kind == kindUnknown || num < 0 || (num == 0 && kind != kindMetadata && kind != kindThumbnail) {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("container: %w: entry %s: %v", apperr.ErrCorruptContainer, f.Name, err)
		}
		switch kind {
		case kindMetadata:
			var ni models.NoteInfo
			if err := json.Unmarshal(content, &ni); err != nil {
				return nil, fmt.Errorf("container: %w: invalid %s: %v", apperr.ErrUnsupportedFormat, metadataEntry, err)
			}
			meta = &ni
		case kindThumbnail:
			thumbnail = content
		case kindPageImage:
			p := pageAt(num)
			p.Image = content
			p.ImageHash = checksum.Sum(content)
		case kindStrokeBlob:
			p := pageAt(num)
			set, derr := stroke.Decode(content)
			if derr != nil {
				p.StrokeErr = derr
			} else {
				p.Strokes = set
			}
		case kindAudio:
			p := pageAt(num)
			p.Audio = &models.Audio{Data: content, OriginalName: audioName}
		}
	}

	if meta == nil {
		return nil, fmt.Errorf("container: %w: %s has no %s", apperr.ErrUnsupportedFormat, name, metadataEntry)
	}

	bookName := meta.NoteName
	if bookName == "" {
		bookName = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}

	book := &models.Book{Name: bookName, Meta: *meta, Thumbnail: thumbnail}
	nums := make([]int, 0, len(pages))
	for n, p := range pages {
		// A page always has an image; stroke or audio entries without one
		// belong to a page the device has not exported yet.
		if p.Image == nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		book.Pages = append(book.Pages, *pages[n])
	}
	return book, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
