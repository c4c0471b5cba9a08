package negative

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"film-negative-converter/internal/raster"
)

// minAnalysisSide is the smallest analysis side the median filter and edge
// detector can work on.
const minAnalysisSide = 3

// Analysis is the downscaled 8-bit luma copy used for geometry detection,
// plus the factors that map its coordinates back to the full raster.
type Analysis struct {
	Gray     *image.Gray
	FullSize image.Point
	// ScaleX and ScaleY are analysis size divided by full size.
	ScaleX, ScaleY float64
}

// Preprocess downsizes img so its longest side is at most maxSize, using a
// triangle filter, and converts it to 8-bit luma. Smaller rasters keep their
// size.
func Preprocess(img *raster.RGB16, maxSize int) (Analysis, error) {
	if img.Empty() {
		return Analysis{}, &GeometryError{Stage: "preprocess", Reason: "empty raster"}
	}

	small := img.ToNRGBA()
	if img.Width > maxSize || img.Height > maxSize {
		small = imaging.Fit(small, maxSize, maxSize, imaging.Triangle)
	}
	if size := small.Bounds().Size(); size.X < minAnalysisSide || size.Y < minAnalysisSide {
		return Analysis{}, &GeometryError{
			Stage:  "preprocess",
			Reason: fmt.Sprintf("%dx%d raster is too thin to analyse (%v at %d px)", img.Width, img.Height, size, maxSize),
		}
	}

	gray, err := lumaOf(small)
	if err != nil {
		return Analysis{}, fmt.Errorf("preprocess: %w", err)
	}

	size := gray.Bounds().Size()
	return Analysis{
		Gray:     gray,
		FullSize: img.Bounds().Size(),
		ScaleX:   float64(size.X) / float64(img.Width),
		ScaleY:   float64(size.Y) / float64(img.Height),
	}, nil
}

func lumaOf(img *image.NRGBA) (*image.Gray, error) {
	b := img.Bounds()
	ref, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, img.Pix)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(ref, &gray, gocv.ColorRGBAToGray)

	return raster.MatToGray(gray)
}

// PointToFull maps the centre of an analysis pixel to the full raster.
func (a Analysis) PointToFull(p image.Point) image.Point {
	x := int((float64(p.X) + 0.5) / a.ScaleX)
	y := int((float64(p.Y) + 0.5) / a.ScaleY)
	return image.Pt(min(max(x, 0), a.FullSize.X-1), min(max(y, 0), a.FullSize.Y-1))
}

// RectToFull scales an analysis rectangle to the full raster and clamps it
// to the raster bounds.
func (a Analysis) RectToFull(r image.Rectangle) image.Rectangle {
	full := image.Rect(
		int(math.Round(float64(r.Min.X)/a.ScaleX)),
		int(math.Round(float64(r.Min.Y)/a.ScaleY)),
		int(math.Round(float64(r.Max.X)/a.ScaleX)),
		int(math.Round(float64(r.Max.Y)/a.ScaleY)),
	)
	return full.Intersect(image.Rectangle{Max: a.FullSize})
}

// RectToAnalysis is the inverse of RectToFull.
func (a Analysis) RectToAnalysis(r image.Rectangle) image.Rectangle {
	small := image.Rect(
		int(math.Round(float64(r.Min.X)*a.ScaleX)),
		int(math.Round(float64(r.Min.Y)*a.ScaleY)),
		int(math.Round(float64(r.Max.X)*a.ScaleX)),
		int(math.Round(float64(r.Max.Y)*a.ScaleY)),
	)
	return small.Intersect(a.Gray.Bounds())
}
