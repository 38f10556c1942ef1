package pathexpand

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandLiteralNonexistentIsNotAnError(t *testing.T) {
	paths, err := Expand([]string{"/tmp/sfagent-does-not-exist-12345.txt"})
	if err != nil {
		t.Fatalf("expected no error for nonexistent literal path, got %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
}

func TestExpandGlobDedup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := Expand([]string{filepath.Join(dir, "*.csv"), filepath.Join(dir, "a.csv")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 deduplicated paths, got %d: %v", len(paths), paths)
	}
}

func TestExpandTildeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	paths, err := Expand([]string{"~/sfagent-tilde-test.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(home, "sfagent-tilde-test.txt")
	if paths[0] != want {
		t.Errorf("expected %s, got %s", want, paths[0])
	}
}
