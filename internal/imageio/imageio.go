// Package imageio writes conversion results and diagnostics to disk.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"film-negative-converter/internal/raster"
)

// PositiveSuffix is appended to the input path when no output directory is
// configured.
const PositiveSuffix = ".positive.tiff"

// ErrExists is returned by Output.Resolve when the destination already
// exists and overwriting is off.
var ErrExists = errors.New("output exists")

// Output decides where the positive for an input file goes.
type Output struct {
	// Dir receives all outputs. A relative Dir is resolved against each
	// input's directory. Empty means next to the input.
	Dir string
	// Overwrite allows replacing existing files.
	Overwrite bool
}

// Path returns the destination for input without touching the filesystem.
func (o Output) Path(input string) string {
	if o.Dir == "" {
		return input + PositiveSuffix
	}
	dir := o.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(input), dir)
	}
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".tiff")
}

// Resolve returns Path(input) after checking it may be written.
func (o Output) Resolve(input string) (string, error) {
	path := o.Path(input)
	if o.Overwrite {
		return path, nil
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s: %w", path, ErrExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return path, nil
}

// WriteTIFF encodes img as a deflate-compressed 16-bit TIFF, creating parent
// directories as needed.
func WriteTIFF(path string, img *raster.RGB16) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := tiff.Encode(f, img.ToRGBA64(), &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// DebugFiles saves each diagnostic stage as <Path>.<stage>.jpeg. It
// implements negative.DebugSink.
type DebugFiles struct {
	Path   string
	Logger *log.Logger
}

// StagePath is the file a stage is written to.
func (d DebugFiles) StagePath(stage string) string {
	return d.Path + "." + stage + ".jpeg"
}

// Debug writes img. Failures are logged and otherwise ignored since
// diagnostics never affect the conversion.
func (d DebugFiles) Debug(stage string, img image.Image) {
	path := d.StagePath(stage)
	if rgb, ok := img.(*raster.RGB16); ok {
		img = rgb.ToNRGBA()
	}

	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		d.logf("debug %s: %v", stage, err)
		return
	}
	d.logf("saved %s", path)
}

func (d DebugFiles) logf(format string, args ...any) {
	if d.Logger != nil {
		d.Logger.Printf(format, args...)
	}
}
