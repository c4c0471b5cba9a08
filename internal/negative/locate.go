package negative

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"film-negative-converter/internal/parallel"
	"film-negative-converter/internal/raster"
)

// Frame is the film frame found on the analysis raster.
type Frame struct {
	// Bounds is the axis-aligned hull of the minimum-area rectangle around
	// all surviving contour points, in analysis coordinates.
	Bounds image.Rectangle
	// Borderless is the denoised mask the border sampler classifies.
	Borderless *image.Gray
	// Contours and Points count what survived the contour noise filter.
	Contours int
	Points   int
}

type located struct {
	analysis Analysis
	frame    Frame
	samples  []image.Point // analysis space
	border   Border
}

// LocateBorder finds the film frame in img and the border pixels around it.
func (c *Converter) LocateBorder(img *raster.RGB16) (Border, error) {
	loc, err := c.locate(img, nil)
	if err != nil {
		return Border{}, err
	}
	return loc.border, nil
}

func (c *Converter) locate(img *raster.RGB16, sink DebugSink) (*located, error) {
	a, err := Preprocess(img, c.cfg.AnalysisSize)
	if err != nil {
		return nil, err
	}
	c.logf("analysis %dx%d scale=%.4f,%.4f", a.Gray.Rect.Dx(), a.Gray.Rect.Dy(), a.ScaleX, a.ScaleY)
	emit(sink, StageGrayscale, a.Gray)

	frame, err := c.FindFrame(a.Gray, sink)
	if err != nil {
		return nil, err
	}
	bounds := a.RectToFull(frame.Bounds)
	c.logf("frame contours=%d points=%d analysis=%v full=%v", frame.Contours, frame.Points, frame.Bounds, bounds)
	if bounds.Empty() {
		return nil, &GeometryError{Stage: "locate border", Reason: fmt.Sprintf("degenerate frame %v", frame.Bounds)}
	}

	samples, err := c.classifier.Classify(frame.Bounds, frame.Borderless)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, &GeometryError{Stage: "sample border", Reason: "classifier returned no samples"}
	}

	full := make([]image.Point, len(samples))
	for i, p := range samples {
		full[i] = a.PointToFull(p)
	}
	c.logf("border samples=%d", len(full))

	return &located{
		analysis: a,
		frame:    frame,
		samples:  samples,
		border:   Border{Bounds: bounds, Samples: full},
	}, nil
}

// FindFrame locates the film frame on an analysis raster:
//
//  1. normalise the histogram, keeping 0 and 255 fixed
//  2. force mount borders and light leaks to black
//  3. normalise the kept pixels again into [0, 254]
//  4. turn the forced-black pixels white
//  5. median filter
//  6. stretch, boost contrast and run Canny
//  7. keep contours with at least MinContourPoints points
//  8. take the bounds of the minimum-area rectangle around them
func (c *Converter) FindFrame(gray *image.Gray, sink DebugSink) (Frame, error) {
	workers := c.cfg.Workers

	mask := NormalizeHistogram(gray, workers)
	suppressed := mapGray(mask, workers, suppressLUT(c.cfg.BlackThreshold, c.cfg.WhiteThreshold))
	// Kept pixels top out at 254 so the border never merges with the
	// whitened pixels, even when it is the brightest tone left.
	mask = normalizeHistogram(suppressed, workers, 254)
	mask = whitenSuppressed(mask, suppressed, workers)

	src, err := raster.GrayToMat(mask)
	if err != nil {
		return Frame{}, fmt.Errorf("find frame: %w", err)
	}
	defer src.Close()

	filtered := gocv.NewMat()
	defer filtered.Close()
	if r := c.cfg.MedianRadius; r > 0 {
		gocv.MedianBlur(src, &filtered, 2*r+1)
	} else {
		src.CopyTo(&filtered)
	}

	borderless, err := raster.MatToGray(filtered)
	if err != nil {
		return Frame{}, fmt.Errorf("find frame: %w", err)
	}
	emit(sink, StageBorderless, borderless)

	// A uniform border next to a white mask ends up a few levels below 255;
	// stretch before the contrast boost so that step survives it.
	stretched := gocv.NewMat()
	defer stretched.Close()
	gocv.Normalize(filtered, &stretched, 0, 255, gocv.NormMinMax)

	alpha := math.Pow((100+c.cfg.Contrast)/100, 2)
	boosted := gocv.NewMat()
	defer boosted.Close()
	stretched.ConvertToWithParams(&boosted, gocv.MatTypeCV8U, float32(alpha), float32(127.5*(1-alpha)))

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(boosted, &edges, c.cfg.CannyLow, c.cfg.CannyHigh)

	if sink != nil {
		if edgeImg, err := raster.MatToGray(edges); err == nil {
			emit(sink, StageEdges, edgeImg)
		}
	}

	contours := gocv.FindContours(edges, gocv.RetrievalList, gocv.ChainApproxNone)
	defer contours.Close()

	var points []image.Point
	kept := 0
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if contour.Size() < c.cfg.MinContourPoints {
			continue
		}
		kept++
		points = append(points, contour.ToPoints()...)
	}
	if len(points) == 0 {
		return Frame{}, &GeometryError{
			Stage:  "locate border",
			Reason: fmt.Sprintf("no contour with at least %d points (found %d contours)", c.cfg.MinContourPoints, contours.Size()),
		}
	}

	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()
	rotRect := gocv.MinAreaRect(pv)

	bounds := rotatedBounds(rotRect).Intersect(borderless.Bounds())
	if bounds.Empty() {
		return Frame{}, &GeometryError{Stage: "locate border", Reason: "minimum-area rectangle is empty"}
	}

	return Frame{Bounds: bounds, Borderless: borderless, Contours: kept, Points: len(points)}, nil
}

// rotatedBounds returns the axis-aligned rectangle spanning the corners of
// a rotated rectangle, clamped to >= 0.
func rotatedBounds(rect gocv.RotatedRect) image.Rectangle {
	if len(rect.Points) == 0 {
		return image.Rectangle{}
	}
	minP, maxP := rect.Points[0], rect.Points[0]
	for _, p := range rect.Points[1:] {
		minP.X, minP.Y = min(minP.X, p.X), min(minP.Y, p.Y)
		maxP.X, maxP.Y = max(maxP.X, p.X), max(maxP.Y, p.Y)
	}
	// Corners are pixel positions; Max is exclusive.
	return image.Rect(max(0, minP.X), max(0, minP.Y), max(0, maxP.X+1), max(0, maxP.Y+1))
}

// NormalizeHistogram spreads luma values over [0, 255] by their cumulative
// distribution. Unlike plain equalisation, pure black stays black and pure
// white stays white.
func NormalizeHistogram(img *image.Gray, workers int) *image.Gray {
	return normalizeHistogram(img, workers, 255)
}

// normalizeHistogram is NormalizeHistogram onto [0, top].
func normalizeHistogram(img *image.Gray, workers int, top uint8) *image.Gray {
	hist := grayHistogram(img, workers)

	var cdf [256]int
	sum := 0
	for v, n := range hist {
		sum += n
		cdf[v] = sum
	}

	low := float32(cdf[0])
	total := float32(cdf[255])
	if total == low {
		return mapGray(img, workers, identityLUT())
	}

	var lut [256]uint8
	for v := range lut {
		lut[v] = uint8(min(float32(top), float32(top)*(float32(cdf[v])-low)/(total-low)))
	}
	return mapGray(img, workers, lut)
}

func grayHistogram(img *image.Gray, workers int) [256]int {
	b := img.Bounds()
	spans := parallel.Split(b.Dy(), workers)
	partial := make([][256]int, len(spans))

	parallel.Run(spans, func(i int, s parallel.Span) {
		h := &partial[i]
		for y := s.Start; y < s.End; y++ {
			row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
			for _, p := range row[:b.Dx()] {
				h[p]++
			}
		}
	})

	var hist [256]int
	for _, h := range partial {
		for v, n := range h {
			hist[v] += n
		}
	}
	return hist
}

func mapGray(img *image.Gray, workers int, lut [256]uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	parallel.Rows(b.Dy(), workers, func(start, end int) {
		for y := start; y < end; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < b.Dx(); x++ {
				dst[x] = lut[src[x]]
			}
		}
	})
	return out
}

func identityLUT() [256]uint8 {
	var lut [256]uint8
	for v := range lut {
		lut[v] = uint8(v)
	}
	return lut
}

// suppressLUT forces values below low or above high to black.
func suppressLUT(low, high uint8) [256]uint8 {
	lut := identityLUT()
	for v := range lut {
		if v < int(low) || v > int(high) {
			lut[v] = 0
		}
	}
	return lut
}

// whitenSuppressed returns img with every pixel that suppressed holds as
// black set to white.
func whitenSuppressed(img, suppressed *image.Gray, workers int) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	parallel.Rows(b.Dy(), workers, func(start, end int) {
		for y := start; y < end; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
			sup := suppressed.Pix[suppressed.PixOffset(suppressed.Rect.Min.X, suppressed.Rect.Min.Y+y):]
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < b.Dx(); x++ {
				if sup[x] == 0 {
					dst[x] = 255
				} else {
					dst[x] = src[x]
				}
			}
		}
	})
	return out
}
