// Package decode turns scan files into 16-bit working rasters.
package decode

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"film-negative-converter/internal/raster"
)

// Decoder reads one file into a full-resolution 16-bit RGB raster.
type Decoder interface {
	Decode(path string) (*raster.RGB16, error)
}

// DecodeError reports a file that could not be turned into a raster. No
// partial result accompanies it.
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode " + e.Path + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	tiffExtensions = []string{".tif", ".tiff"}
	rawExtensions  = []string{
		".3fr", ".arw", ".cr2", ".cr3", ".crw", ".dng", ".erf", ".iiq", ".kdc",
		".mef", ".mos", ".mrw", ".nef", ".nrw", ".orf", ".pef", ".raf", ".raw",
		".rw2", ".rwl", ".sr2", ".srf", ".srw", ".x3f",
	}
)

// IsTIFF reports whether path names a TIFF file.
func IsTIFF(path string) bool { return hasExt(path, tiffExtensions) }

// IsRaw reports whether path names a camera RAW file.
func IsRaw(path string) bool { return hasExt(path, rawExtensions) }

// Supported reports whether ForPath has a decoder for path.
func Supported(path string) bool { return IsTIFF(path) || IsRaw(path) }

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ForPath picks a decoder by file extension: TIFF files are read directly
// and RAW files go through dcraw.
func ForPath(path string) (Decoder, error) {
	switch {
	case IsTIFF(path):
		return TIFF{}, nil
	case IsRaw(path):
		return Dcraw{}, nil
	}
	return nil, &DecodeError{Path: path, Reason: fmt.Sprintf("unsupported file type %q", filepath.Ext(path))}
}

// TIFF decodes already developed 16-bit RGB TIFF files.
type TIFF struct{}

// Decode implements Decoder.
func (TIFF) Decode(path string) (*raster.RGB16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: "open", Err: err}
	}
	defer f.Close()

	return decodeTIFF(path, f)
}

func decodeTIFF(path string, r io.Reader) (*raster.RGB16, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: "invalid tiff", Err: err}
	}

	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
	default:
		return nil, &DecodeError{Path: path, Reason: fmt.Sprintf("unsupported bit depth (%T)", img)}
	}

	out := raster.FromImage(img)
	if out.Empty() {
		return nil, &DecodeError{Path: path, Reason: "empty image"}
	}
	return out, nil
}
