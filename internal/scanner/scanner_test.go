package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListFiles(t *testing.T) {
	dir := t.TempDir()

	// Создаём файлы и поддиректорию
	for _, name := range []string{"a.jpg", "b.png", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}

	if len(names) != 3 {
		t.Fatalf("ListFiles() returned %d entries, want 3: %v", len(names), names)
	}

	// Поддиректория не должна попасть в список
	for _, n := range names {
		if n == "subdir" {
			t.Error("ListFiles() returned a directory entry")
		}
	}
}

func TestListFiles_MissingDir(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("ListFiles() on missing directory: error = nil, want error")
	}
}

func TestListFiles_EmptyDir(t *testing.T) {
	names, err := ListFiles(t.TempDir())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListFiles() on empty directory returned %v, want empty", names)
	}
}

func TestDirHash(t *testing.T) {
	h1 := DirHash("/photos/a")
	h2 := DirHash("/photos/a")
	h3 := DirHash("/photos/b")

	if h1 != h2 {
		t.Error("DirHash() is not deterministic for the same path")
	}
	if h1 == h3 {
		t.Error("DirHash() returned equal hashes for different paths")
	}
	if len(h1) != 40 {
		t.Errorf("DirHash() length = %d, want 40 hex chars", len(h1))
	}

	for _, c := range h1 {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Errorf("DirHash() contains non-hex char %q", c)
			break
		}
	}
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "exists.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	set, err := Snapshot(dir)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if _, ok := set["exists.jpg"]; !ok {
		t.Error("Snapshot() is missing an existing file")
	}
	if _, ok := set["missing.jpg"]; ok {
		t.Error("Snapshot() contains a file that does not exist")
	}
}

func TestSnapshot_MissingDir(t *testing.T) {
	set, err := Snapshot(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Error("Snapshot() on missing directory: error = nil, want error")
	}
	if len(set) != 0 {
		t.Errorf("Snapshot() on missing directory returned %d entries, want 0", len(set))
	}
}
