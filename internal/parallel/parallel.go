// Package parallel fans per-row pixel work out across CPUs.
//
// Every helper returns only after all of its goroutines have finished, so a
// call is a barrier between pipeline stages.
package parallel

import (
	"runtime"
	"sync"
)

// Span is a half-open row range [Start, End).
type Span struct {
	Start, End int
}

// Split divides n rows into at most workers contiguous spans.
// A workers value <= 0 means runtime.NumCPU().
func Split(n, workers int) []Span {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	rowsPerWorker := (n + workers - 1) / workers
	spans := make([]Span, 0, workers)
	for start := 0; start < n; start += rowsPerWorker {
		spans = append(spans, Span{Start: start, End: min(start+rowsPerWorker, n)})
	}
	return spans
}

// Run calls fn once per span, concurrently, and waits for all of them.
// fn receives the span index so callers can keep per-span accumulators.
func Run(spans []Span, fn func(i int, s Span)) {
	var wg sync.WaitGroup
	for i, s := range spans {
		wg.Add(1)
		go func(i int, s Span) {
			defer wg.Done()
			fn(i, s)
		}(i, s)
	}
	wg.Wait()
}

// Rows splits [0, n) into stripes and processes them concurrently.
func Rows(n, workers int, fn func(start, end int)) {
	Run(Split(n, workers), func(_ int, s Span) {
		fn(s.Start, s.End)
	})
}
