// Package batch expands command-line inputs and runs independent per-file
// jobs on a bounded pool. A failing or panicking file never affects the
// others.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"film-negative-converter/internal/decode"
)

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// HasDir reports whether any of args is a directory.
func HasDir(args []string) bool {
	for _, a := range args {
		if IsDir(a) {
			return true
		}
	}
	return false
}

// Expand replaces every directory in args with the decodable files directly
// inside it. Plain file arguments are kept as given. Directories that cannot
// be listed are skipped and reported in the returned error.
func Expand(args []string) ([]string, error) {
	var (
		files []string
		errs  []error
	)
	for _, a := range args {
		if !IsDir(a) {
			files = append(files, a)
			continue
		}
		dirFiles, err := expandDirectory(a)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", a, err))
			continue
		}
		files = append(files, dirFiles...)
	}
	return files, errors.Join(errs...)
}

func expandDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if decode.Supported(path) {
			files = append(files, path)
		}
	}
	return files, nil
}

// Result is the outcome of one file.
type Result[T any] struct {
	Index int
	Path  string
	Value T
	Err   error
}

// Run calls fn for every file using at most workers goroutines (<= 0 means
// runtime.NumCPU()). done, if not nil, is called once per file as it
// finishes, serialised, with the number of files finished so far. Results
// are returned in input order.
func Run[T any](files []string, workers int, fn func(path string) (T, error), done func(n int, r Result[T])) []Result[T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(files))

	results := make([]Result[T], len(files))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		finished int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r := runOne(i, files[i], fn)
				results[i] = r

				mu.Lock()
				finished++
				if done != nil {
					done(finished, r)
				}
				mu.Unlock()
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func runOne[T any](i int, path string, fn func(string) (T, error)) (r Result[T]) {
	r = Result[T]{Index: i, Path: path}
	defer func() {
		if p := recover(); p != nil {
			r.Err = fmt.Errorf("panic: %v", p)
		}
	}()
	r.Value, r.Err = fn(path)
	return r
}

// Failed counts results with an error.
func Failed[T any](results []Result[T]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
