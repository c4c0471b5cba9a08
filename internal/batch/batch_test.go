package batch

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.NEF", "b.tif", "c.jpg", "notes.txt", "d.dng"} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.tif"), 0o755); err != nil {
		t.Fatal(err)
	}
	explicit := filepath.Join(t.TempDir(), "frame.jpg")
	touch(t, explicit)

	files, err := Expand([]string{explicit, dir})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		explicit,
		filepath.Join(dir, "a.NEF"),
		filepath.Join(dir, "b.tif"),
		filepath.Join(dir, "d.dng"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %v want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("got %v want %v", files, want)
		}
	}
	if !HasDir([]string{explicit, dir}) || HasDir([]string{explicit}) {
		t.Fatal("HasDir misreported")
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	files := []string{"ok1", "fail", "panic", "ok2", "ok3"}
	var calls atomic.Int32
	var order []int

	results := Run(files, 3, func(path string) (int, error) {
		calls.Add(1)
		switch path {
		case "fail":
			return 0, errors.New("bad scan")
		case "panic":
			panic("boom")
		}
		return len(path), nil
	}, func(n int, r Result[int]) {
		order = append(order, n)
	})

	if calls.Load() != int32(len(files)) {
		t.Fatalf("fn called %d times", calls.Load())
	}
	if Failed(results) != 2 {
		t.Fatalf("failed = %d", Failed(results))
	}
	for i, r := range results {
		if r.Index != i || r.Path != files[i] {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
	}
	if results[0].Value != 3 || results[1].Err == nil || results[2].Err == nil || results[4].Err != nil {
		t.Fatalf("unexpected results %+v", results)
	}

	sort.Ints(order)
	for i, n := range order {
		if n != i+1 {
			t.Fatalf("done counts %v", order)
		}
	}
}

func TestRunEmpty(t *testing.T) {
	if got := Run(nil, 0, func(string) (struct{}, error) { return struct{}{}, nil }, nil); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}
