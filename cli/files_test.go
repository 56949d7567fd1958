package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) string {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	loose := mustWrite("loose.txt")
	a := mustWrite("tree/a.txt")
	b := mustWrite("tree/nested/b.txt")

	got, err := ExpandPaths([]string{loose, filepath.Join(dir, "tree")})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}

	want := []string{loose, a, b}
	if len(got) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != filepath.ToSlash(want[i]) {
			t.Errorf("path #%d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestExpandPathsMissingArgument(t *testing.T) {
	if _, err := ExpandPaths([]string{"/no/such/path"}); err == nil {
		t.Fatal("expected error for missing path")
	}
}
