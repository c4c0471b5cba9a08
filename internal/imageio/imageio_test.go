package imageio

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"film-negative-converter/internal/decode"
	"film-negative-converter/internal/raster"
)

func TestOutputPath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "out")
	for _, tc := range []struct {
		name  string
		out   Output
		input string
		want  string
	}{
		{"beside input", Output{}, "scans/roll1/f01.nef", "scans/roll1/f01.nef.positive.tiff"},
		{"relative dir", Output{Dir: "positives"}, "scans/roll1/f01.nef", "scans/roll1/positives/f01.tiff"},
		{"absolute dir", Output{Dir: abs}, "scans/roll1/f01.nef", filepath.Join(abs, "f01.tiff")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.out.Path(tc.input); got != filepath.FromSlash(tc.want) {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestOutputResolve(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "f01.nef")
	existing := input + PositiveSuffix
	if err := os.WriteFile(existing, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := (Output{}).Resolve(input); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if got, err := (Output{Overwrite: true}).Resolve(input); err != nil || got != existing {
		t.Fatalf("overwrite: got %q, %v", got, err)
	}
	if got, err := (Output{}).Resolve(filepath.Join(dir, "f02.nef")); err != nil || got == "" {
		t.Fatalf("fresh: got %q, %v", got, err)
	}
}

func TestWriteTIFFRoundTrip(t *testing.T) {
	img := raster.New(5, 3)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			img.Set(x, y, uint16(x*13000), uint16(y*30000), 65535)
		}
	}
	path := filepath.Join(t.TempDir(), "nested", "out.tiff")

	if err := WriteTIFF(path, img); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := decode.TIFF{}.Decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Width != img.Width || got.Height != img.Height {
		t.Fatalf("size %dx%d", got.Width, got.Height)
	}
	for i := range img.Pix {
		if got.Pix[i] != img.Pix[i] {
			t.Fatalf("sample %d: got %d want %d", i, got.Pix[i], img.Pix[i])
		}
	}
}

func TestDebugFilesWritesStages(t *testing.T) {
	base := filepath.Join(t.TempDir(), "f01.nef")
	sink := DebugFiles{Path: base}

	gray := image.NewGray(image.Rect(0, 0, 8, 6))
	sink.Debug("edges", gray)
	rgb := raster.New(10, 4)
	rgb.Fill(rgb.Bounds(), 65535, 0, 0)
	sink.Debug("inverted", rgb)

	for stage, size := range map[string]image.Point{"edges": {8, 6}, "inverted": {10, 4}} {
		img, err := imaging.Open(sink.StagePath(stage))
		if err != nil {
			t.Fatalf("%s: %v", stage, err)
		}
		if img.Bounds().Size() != size {
			t.Fatalf("%s: size %v", stage, img.Bounds().Size())
		}
	}
	if want := base + ".edges.jpeg"; sink.StagePath("edges") != want {
		t.Fatalf("stage path %q", sink.StagePath("edges"))
	}
}

func TestDebugFilesIgnoresWriteErrors(t *testing.T) {
	sink := DebugFiles{Path: filepath.Join(t.TempDir(), "missing", "f01")}
	sink.Debug("edges", image.NewGray(image.Rect(0, 0, 2, 2)))
}
