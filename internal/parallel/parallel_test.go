package parallel

import (
	"sync/atomic"
	"testing"
)

func TestSplitCoversEveryRowOnce(t *testing.T) {
	for _, tc := range []struct {
		n, workers int
	}{
		{1, 4}, {7, 3}, {100, 8}, {333, 0}, {16, 16}, {5, 100},
	} {
		spans := Split(tc.n, tc.workers)
		if len(spans) == 0 {
			t.Fatalf("n=%d workers=%d: no spans", tc.n, tc.workers)
		}
		next := 0
		for _, s := range spans {
			if s.Start != next || s.End <= s.Start {
				t.Fatalf("n=%d workers=%d: bad span %+v after row %d", tc.n, tc.workers, s, next)
			}
			next = s.End
		}
		if next != tc.n {
			t.Fatalf("n=%d workers=%d: spans end at %d", tc.n, tc.workers, next)
		}
		if tc.workers > 0 && len(spans) > tc.workers {
			t.Fatalf("n=%d workers=%d: %d spans", tc.n, tc.workers, len(spans))
		}
	}
}

func TestSplitEmpty(t *testing.T) {
	if spans := Split(0, 4); spans != nil {
		t.Fatalf("expected no spans, got %v", spans)
	}
}

func TestRowsVisitsAll(t *testing.T) {
	const n = 1000
	var seen [n]int32
	Rows(n, 7, func(start, end int) {
		for y := start; y < end; y++ {
			atomic.AddInt32(&seen[y], 1)
		}
	})
	for y, c := range seen {
		if c != 1 {
			t.Fatalf("row %d visited %d times", y, c)
		}
	}
}
