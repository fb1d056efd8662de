// Package apperr defines the sentinel errors shared across the importer.
package apperr

import "errors"

var (
	// ErrCorruptContainer marks a .note archive whose index cannot be parsed.
	// Fatal for that book; a batch continues with the next file.
	ErrCorruptContainer = errors.New("corrupt container")

	// ErrUnsupportedFormat marks an archive missing the required NoteInfo.json
	// metadata entry. Fatal for that book.
	ErrUnsupportedFormat = errors.New("unsupported container format")

	// ErrMalformedStroke marks a stroke blob with a truncated or inconsistent
	// record. Recoverable at page granularity: the page keeps its image and
	// audio, only the vector rendering is skipped.
	ErrMalformedStroke = errors.New("malformed stroke record")

	// ErrImportInProgress is returned when a second import is requested for a
	// book whose pipeline run has not finished yet.
	ErrImportInProgress = errors.New("import already in progress")

	// ErrNotFound is returned by lookups for unknown books or manifests.
	ErrNotFound = errors.New("not found")
)
