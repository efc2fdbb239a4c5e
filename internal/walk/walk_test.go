package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestFilesWalksDirectoryRecursively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"), 10)
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(sub, "b.jpg"), 20)

	var got []string
	err := Files(dir, 1<<20, func(path string, size int64) error {
		got = append(got, path)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Files returned error: %v", err)
	}
	sort.Strings(got)
	want := []string{filepath.Join(dir, "a.jpg"), filepath.Join(sub, "b.jpg")}
	sort.Strings(want)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Files visited %v, want %v", got, want)
	}
}

func TestFilesSkipsOversizeViaOversizeFunc(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.jpg")
	big := filepath.Join(dir, "big.jpg")
	writeFile(t, small, 5)
	writeFile(t, big, 50)

	var visited, skipped []string
	err := Files(dir, 10, func(path string, size int64) error {
		visited = append(visited, path)
		return nil
	}, func(path string, size int64) {
		skipped = append(skipped, path)
	})
	if err != nil {
		t.Fatalf("Files returned error: %v", err)
	}
	if len(visited) != 1 || visited[0] != small {
		t.Fatalf("visited = %v, want [%s]", visited, small)
	}
	if len(skipped) != 1 || skipped[0] != big {
		t.Fatalf("skipped = %v, want [%s]", skipped, big)
	}
}

func TestFilesSingleFileRoot(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "only.jpg")
	writeFile(t, f, 10)

	var got []string
	err := Files(f, 1<<20, func(path string, size int64) error {
		got = append(got, path)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Files returned error: %v", err)
	}
	if len(got) != 1 || got[0] != f {
		t.Fatalf("Files(single file) visited %v, want [%s]", got, f)
	}
}

func TestFilesPropagatesFnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"), 5)

	sentinel := os.ErrInvalid
	err := Files(dir, 1<<20, func(path string, size int64) error {
		return sentinel
	}, nil)
	if err == nil {
		t.Fatal("expected Files to propagate the callback's error")
	}
}
