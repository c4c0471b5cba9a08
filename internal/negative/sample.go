package negative

import (
	"fmt"
	"image"
	"math"
)

// SampleClassifier picks the pixels of the film's border material from the
// band around a located frame. bounds and mask are in analysis coordinates
// and so are the returned points.
type SampleClassifier interface {
	Classify(bounds image.Rectangle, mask *image.Gray) ([]image.Point, error)
}

// ModalClassifier treats the most frequent mask value in the band just
// outside the frame as the border tone. White mask pixels (mount borders and
// light leaks) are never candidates.
type ModalClassifier struct {
	// Gap is the band width as a fraction of the mask width and height.
	Gap float64
}

// Classify implements SampleClassifier.
func (m ModalClassifier) Classify(bounds image.Rectangle, mask *image.Gray) ([]image.Point, error) {
	band := SampleBand(bounds, mask.Bounds(), m.Gap)

	var hist [256]int
	eachCandidate(bounds, band, mask, func(x, y int, v uint8) {
		hist[v]++
	})

	mode := 0
	for v, n := range hist {
		if n > hist[mode] {
			mode = v
		}
	}
	if hist[mode] == 0 {
		return nil, &GeometryError{
			Stage:  "sample border",
			Reason: fmt.Sprintf("no border candidates around %v within %v", bounds, band),
		}
	}

	samples := make([]image.Point, 0, hist[mode])
	eachCandidate(bounds, band, mask, func(x, y int, v uint8) {
		if int(v) == mode {
			samples = append(samples, image.Pt(x, y))
		}
	})
	return samples, nil
}

// SampleBand grows bounds by gap (a fraction of the image size, at least one
// pixel per axis) and clips the result to the image.
func SampleBand(bounds, img image.Rectangle, gap float64) image.Rectangle {
	gx := max(1, int(math.Round(gap*float64(img.Dx()))))
	gy := max(1, int(math.Round(gap*float64(img.Dy()))))
	return image.Rect(bounds.Min.X-gx, bounds.Min.Y-gy, bounds.Max.X+gx, bounds.Max.Y+gy).Intersect(img)
}

// eachCandidate calls fn for every non-white mask pixel inside band but
// outside bounds.
func eachCandidate(bounds, band image.Rectangle, mask *image.Gray, fn func(x, y int, v uint8)) {
	for y := band.Min.Y; y < band.Max.Y; y++ {
		for x := band.Min.X; x < band.Max.X; x++ {
			if (image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			v := mask.GrayAt(x, y).Y
			if v == 255 {
				continue
			}
			fn(x, y, v)
		}
	}
}
