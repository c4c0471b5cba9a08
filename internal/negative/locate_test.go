package negative

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"film-negative-converter/internal/raster"
)

var scenarioFrame = image.Rect(25, 25, 575, 375)

func TestLocateBorderFindsInteriorFrame(t *testing.T) {
	img := framed(600, 400, scenarioFrame, gray3(5000), gray3(40000))

	border, err := newTestConverter(t).LocateBorder(img)
	if err != nil {
		t.Fatalf("locate border: %v", err)
	}

	b := border.Bounds
	if !b.In(img.Bounds()) || b.Empty() {
		t.Fatalf("bounds %v outside image %v", b, img.Bounds())
	}
	for name, d := range map[string]int{
		"min x": b.Min.X - scenarioFrame.Min.X,
		"min y": b.Min.Y - scenarioFrame.Min.Y,
		"max x": b.Max.X - scenarioFrame.Max.X,
		"max y": b.Max.Y - scenarioFrame.Max.Y,
	} {
		if absInt(d) > 5 {
			t.Fatalf("%s off by %d: got %v want about %v", name, d, b, scenarioFrame)
		}
	}
}

func TestLocateBorderSamplesBorderColor(t *testing.T) {
	borderColor := [3]uint16{6000, 5000, 4000}
	img := framed(600, 400, scenarioFrame, borderColor, [3]uint16{30000, 36000, 42000})

	border, err := newTestConverter(t).LocateBorder(img)
	if err != nil {
		t.Fatalf("locate border: %v", err)
	}
	if len(border.Samples) == 0 {
		t.Fatal("no samples")
	}

	var values [3][]float64
	for _, p := range border.Samples {
		if !p.In(img.Bounds()) {
			t.Fatalf("sample %v outside image", p)
		}
		r, g, b := img.RGB(p.X, p.Y)
		values[0] = append(values[0], float64(r))
		values[1] = append(values[1], float64(g))
		values[2] = append(values[2], float64(b))
	}
	for ch, v := range values {
		mean := stat.Mean(v, nil)
		want := float64(borderColor[ch])
		if mean < want*0.99 || mean > want*1.01 {
			t.Fatalf("%s sample mean %.1f, want %.0f", channelNames[ch], mean, want)
		}
	}
}

func TestLocateBorderAllBlack(t *testing.T) {
	img := raster.New(600, 400)

	_, err := newTestConverter(t).LocateBorder(img)
	var geomErr *GeometryError
	if !errors.As(err, &geomErr) {
		t.Fatalf("expected GeometryError, got %v", err)
	}
}

func TestPreprocessScales(t *testing.T) {
	for _, tc := range []struct {
		w, h         int
		wantW, wantH int
	}{
		{1000, 500, 500, 250},
		{400, 800, 250, 500},
		{300, 200, 300, 200},
	} {
		a, err := Preprocess(raster.New(tc.w, tc.h), 500)
		if err != nil {
			t.Fatalf("%dx%d: %v", tc.w, tc.h, err)
		}
		size := a.Gray.Bounds().Size()
		if size.X != tc.wantW || size.Y != tc.wantH {
			t.Fatalf("%dx%d: analysis %v, want %dx%d", tc.w, tc.h, size, tc.wantW, tc.wantH)
		}
		if a.ScaleX != float64(tc.wantW)/float64(tc.w) || a.ScaleY != float64(tc.wantH)/float64(tc.h) {
			t.Fatalf("%dx%d: scale %v,%v", tc.w, tc.h, a.ScaleX, a.ScaleY)
		}
	}
}

func TestPreprocessLuma(t *testing.T) {
	img := raster.New(4, 4)
	img.Fill(img.Bounds(), 40000, 40000, 40000)

	a, err := Preprocess(img, 500)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if v := a.Gray.GrayAt(2, 2).Y; v != 40000>>8 {
		t.Fatalf("luma %d, want %d", v, 40000>>8)
	}
}

func TestPreprocessEmpty(t *testing.T) {
	var geomErr *GeometryError
	if _, err := Preprocess(raster.New(0, 0), 500); !errors.As(err, &geomErr) {
		t.Fatalf("expected GeometryError, got %v", err)
	}
}

func TestAnalysisRectRoundTrip(t *testing.T) {
	a := Analysis{
		Gray:     image.NewGray(image.Rect(0, 0, 500, 333)),
		FullSize: image.Pt(600, 400),
		ScaleX:   500.0 / 600,
		ScaleY:   333.0 / 400,
	}
	full := a.RectToFull(a.RectToAnalysis(scenarioFrame))
	if absInt(full.Min.X-scenarioFrame.Min.X) > 2 || absInt(full.Max.Y-scenarioFrame.Max.Y) > 2 {
		t.Fatalf("round trip drifted: %v -> %v", scenarioFrame, full)
	}
	if p := a.PointToFull(image.Pt(499, 332)); !p.In(image.Rect(0, 0, 600, 400)) {
		t.Fatalf("point %v outside full raster", p)
	}
}

func TestNormalizeHistogramKeepsBlackAndWhite(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(img.Pix, []uint8{0, 100, 200, 255})

	out := NormalizeHistogram(img, 2)
	want := []uint8{0, 85, 170, 255}
	for i, v := range out.Pix {
		if v != want[i] {
			t.Fatalf("pixel %d: got %d want %d", i, v, want[i])
		}
	}
}

func TestNormalizeHistogramUniform(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	out := NormalizeHistogram(img, 0)
	for i, v := range out.Pix {
		if v != 0 {
			t.Fatalf("pixel %d: got %d", i, v)
		}
	}
}

func TestSuppressAndWhiten(t *testing.T) {
	lut := suppressLUT(20, 240)
	for v, want := range map[int]uint8{0: 0, 19: 0, 20: 20, 240: 240, 241: 0, 255: 0} {
		if lut[v] != want {
			t.Fatalf("suppress %d: got %d want %d", v, lut[v], want)
		}
	}

	suppressed := image.NewGray(image.Rect(0, 0, 3, 1))
	copy(suppressed.Pix, []uint8{0, 48, 0})
	norm := image.NewGray(image.Rect(0, 0, 3, 1))
	copy(norm.Pix, []uint8{0, 254, 0})
	if w := whitenSuppressed(norm, suppressed, 0); w.Pix[0] != 255 || w.Pix[1] != 254 || w.Pix[2] != 255 {
		t.Fatalf("whiten: got %v", w.Pix)
	}
}

func TestNormalizeHistogramCeiling(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(img.Pix, []uint8{0, 0, 48, 48})

	out := normalizeHistogram(img, 0, 254)
	if out.Pix[0] != 0 || out.Pix[2] != 254 {
		t.Fatalf("got %v", out.Pix)
	}
}

// Rasters at or below the analysis size skip resampling, so the frame edge
// stays a hard step.
func TestLocateBorderSharpFrame(t *testing.T) {
	frame := image.Rect(12, 12, 288, 188)
	borderColor := gray3(5000)
	img := framed(300, 200, frame, borderColor, gray3(40000))

	border, err := newTestConverter(t).LocateBorder(img)
	if err != nil {
		t.Fatalf("locate border: %v", err)
	}

	b := border.Bounds
	for name, d := range map[string]int{
		"min x": b.Min.X - frame.Min.X,
		"min y": b.Min.Y - frame.Min.Y,
		"max x": b.Max.X - frame.Max.X,
		"max y": b.Max.Y - frame.Max.Y,
	} {
		if absInt(d) > 3 {
			t.Fatalf("%s off by %d: got %v want about %v", name, d, b, frame)
		}
	}

	if len(border.Samples) == 0 {
		t.Fatal("no samples")
	}
	for _, p := range border.Samples {
		if r, g, bl := img.RGB(p.X, p.Y); r != borderColor[0] || g != borderColor[1] || bl != borderColor[2] {
			t.Fatalf("sample %v is not on the border: %d %d %d", p, r, g, bl)
		}
	}
}

func TestRotatedBoundsUsesCorners(t *testing.T) {
	rect := gocv.RotatedRect{Points: []image.Point{{12, 11}, {287, 11}, {287, 187}, {12, 187}}}
	if got := rotatedBounds(rect); got != image.Rect(12, 11, 288, 188) {
		t.Fatalf("got %v", got)
	}

	rect = gocv.RotatedRect{Points: []image.Point{{-2, 5}, {10, -1}, {14, 7}, {2, 13}}}
	if got := rotatedBounds(rect); got != image.Rect(0, 0, 15, 14) {
		t.Fatalf("got %v", got)
	}
	if got := rotatedBounds(gocv.RotatedRect{}); !got.Empty() {
		t.Fatalf("got %v", got)
	}
}

func TestPreprocessThinRaster(t *testing.T) {
	var geomErr *GeometryError
	if _, err := Preprocess(raster.New(5000, 3), 500); !errors.As(err, &geomErr) {
		t.Fatalf("expected GeometryError, got %v", err)
	}
}
