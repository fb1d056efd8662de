package catalog

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/tuannvm/viwoods-obsidian/internal/models"
)

// BookRow is one book as listed by the catalog.
type BookRow struct {
	Name       string    `json:"name"`
	SourceFile string    `json:"sourceFile"`
	TotalPages int       `json:"totalPages"`
	LastImport time.Time `json:"lastImport"`
}

// RunRow is one recorded import run.
type RunRow struct {
	ID             string    `json:"id"`
	Book           string    `json:"book"`
	Date           time.Time `json:"date"`
	NewPages       int       `json:"newPages"`
	ModifiedPages  int       `json:"modifiedPages"`
	UnchangedPages int       `json:"unchangedPages"`
	DeletedPages   int       `json:"deletedPages"`
	ErrorCount     int       `json:"errorCount"`
}

// UpsertBook replaces the catalog's view of one book with the manifest's
// current state: the books row and all page rows, within one transaction.
func (db *DB) UpsertBook(m *models.ImportManifest) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO books (name, source_file, total_pages, last_import)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source_file = excluded.source_file,
			total_pages = excluded.total_pages,
			last_import = excluded.last_import
	`, m.BookName, m.SourceFile, m.TotalPages, m.LastImport)
	if err != nil {
		return fmt.Errorf("catalog: upsert book: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM pages WHERE book = ?`, m.BookName); err != nil {
		return fmt.Errorf("catalog: clear pages: %w", err)
	}
	if len(m.ImportedPages) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO pages (book, page_num, file_name, image_hash, has_audio, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("catalog: prepare page insert: %w", err)
		}
		defer stmt.Close()

		nums := make([]int, 0, len(m.ImportedPages))
		for n := range m.ImportedPages {
			nums = append(nums, n)
		}
		sort.Ints(nums)
		for _, n := range nums {
			p := m.ImportedPages[n]
			if _, err := stmt.Exec(m.BookName, n, p.FileName, p.ImageHash, p.HasAudio, p.ImportDate); err != nil {
				return fmt.Errorf("catalog: insert page: %w", err)
			}
		}
	}

	return tx.Commit()
}

// RecordRun stores one import run summary.
func (db *DB) RecordRun(s *models.ImportSummary, date time.Time) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO runs
			(id, book, run_date, new_pages, modified_pages, unchanged_pages, deleted_pages, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.RunID, s.BookName, date,
		len(s.NewPages), len(s.ModifiedPages), len(s.UnchangedPages), len(s.DeletedPages), len(s.Errors))
	if err != nil {
		return fmt.Errorf("catalog: record run: %w", err)
	}
	return nil
}

// DeleteBook removes a book, its pages, and its runs from the catalog.
func (db *DB) DeleteBook(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM pages WHERE book = ?`, name)
	_, _ = tx.Exec(`DELETE FROM runs WHERE book = ?`, name)
	_, _ = tx.Exec(`DELETE FROM books WHERE name = ?`, name)

	return tx.Commit()
}

// ListBooks returns every cataloged book ordered by name.
func (db *DB) ListBooks() ([]BookRow, error) {
	rows, err := db.conn.Query(`
		SELECT name, source_file, total_pages, last_import
		FROM books ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list books: %w", err)
	}
	defer rows.Close()

	var out []BookRow
	for rows.Next() {
		var b BookRow
		// Scanned bare so the driver keeps the DATETIME column type; NULL
		// (never imported) leaves LastImport zero.
		var last sql.NullTime
		if err := rows.Scan(&b.Name, &b.SourceFile, &b.TotalPages, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			b.LastImport = last.Time
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListRuns returns the most recent runs for a book, newest first.
func (db *DB) ListRuns(book string, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, book, run_date, new_pages, modified_pages, unchanged_pages, deleted_pages, error_count
		FROM runs WHERE book = ? ORDER BY run_date DESC LIMIT ?
	`, book, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.Book, &r.Date, &r.NewPages, &r.ModifiedPages,
			&r.UnchangedPages, &r.DeletedPages, &r.ErrorCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PageCount returns the number of cataloged pages for a book.
func (db *DB) PageCount(book string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM pages WHERE book = ?`, book).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalog: page count: %w", err)
	}
	return n, nil
}

// Rebuild replaces the whole catalog from a set of manifests.
func (db *DB) Rebuild(manifests []*models.ImportManifest) error {
	for _, m := range manifests {
		if err := db.UpsertBook(m); err != nil {
			return err
		}
	}
	return nil
}
