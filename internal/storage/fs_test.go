package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestFS(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

func TestNewFSCreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	info, err := os.Stat(fs.Root())
	if err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestNewFSRejectsFileRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a-file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(path); err == nil {
		t.Error("a regular file must not be accepted as root")
	}
}

func TestWriteRead(t *testing.T) {
	_, fs := newTestFS(t)

	if err := fs.Write("book/page.png", []byte("content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := fs.Read("book/page.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "content" {
		t.Errorf("read = %q", got)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir, fs := newTestFS(t)

	for i := 0; i < 5; i++ {
		if err := fs.Write("file.txt", []byte(strings.Repeat("x", i))); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".viwoods-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	_, fs := newTestFS(t)

	for _, path := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		if err := fs.Write(path, []byte("x")); err == nil {
			t.Errorf("Write(%q) must be rejected", path)
		}
		if _, err := fs.Read(path); err == nil {
			t.Errorf("Read(%q) must be rejected", path)
		}
	}
}

func TestListFiltersByExtension(t *testing.T) {
	_, fs := newTestFS(t)

	for _, name := range []string{"a.note", "b.NOTE", "c.zip", "d.txt", "sub/e.note"} {
		if err := fs.Write(name, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := fs.List("", ".note", ".zip")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 4 {
		t.Errorf("metas = %+v, want 4 (extension match is case-insensitive, recursive)", metas)
	}

	all, err := fs.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("unfiltered list = %d entries, want 5", len(all))
	}
}

func TestDelete(t *testing.T) {
	_, fs := newTestFS(t)
	if err := fs.Write("x.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Delete("x.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := fs.Read("x.txt"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("read after delete: %v", err)
	}
	if err := fs.Delete("x.txt"); err == nil {
		t.Error("deleting a missing file must error")
	}
}

func TestMove(t *testing.T) {
	_, fs := newTestFS(t)
	if err := fs.Write("old.txt", []byte("payload")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Move("old.txt", "archive/new.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := fs.Read("archive/new.txt")
	if err != nil || string(got) != "payload" {
		t.Errorf("moved content = %q, %v", got, err)
	}
	if _, err := fs.Read("old.txt"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("source still present: %v", err)
	}
}

func TestStat(t *testing.T) {
	_, fs := newTestFS(t)
	if err := fs.Write("f.bin", []byte("12345")); err != nil {
		t.Fatal(err)
	}
	meta, err := fs.Stat("f.bin")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.Size != 5 || meta.Path != "f.bin" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.ModTime.IsZero() {
		t.Error("mod time missing")
	}
	if _, err := fs.Stat("absent"); err == nil {
		t.Error("stat of a missing file must error")
	}
}
