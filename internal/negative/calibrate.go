package negative

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"

	"film-negative-converter/internal/parallel"
	"film-negative-converter/internal/raster"
)

// Rec. 601 luma weights.
var lumaWeights = [raster.Channels]float64{0.299, 0.587, 0.114}

// CalibrateAndCrop white-balances img against the border samples, cuts out
// crop and inverts the result.
func (c *Converter) CalibrateAndCrop(img *raster.RGB16, border Border, crop CropRect) (*raster.RGB16, error) {
	rect := crop.Pixels().Intersect(img.Bounds())
	if rect.Empty() {
		return nil, &GeometryError{Stage: "calibrate", Reason: fmt.Sprintf("crop rectangle %+v has no area", crop)}
	}

	ref, err := ReferenceColor(img, border.Samples)
	if err != nil {
		return nil, err
	}
	ratios, err := BalanceRatios(ref)
	if err != nil {
		return nil, err
	}
	c.logf("reference=%.1f,%.1f,%.1f ratios=%.4f,%.4f,%.4f", ref[0], ref[1], ref[2], ratios[0], ratios[1], ratios[2])

	balanced := WhiteBalance(img, ratios, c.cfg.Workers)
	cropped, err := Crop(balanced, rect)
	if err != nil {
		return nil, err
	}
	return Invert(cropped, c.cfg.Workers), nil
}

// ReferenceColor is the per-channel root mean square of img at samples.
// Samples outside img are ignored.
func ReferenceColor(img *raster.RGB16, samples []image.Point) ([raster.Channels]float64, error) {
	var ref [raster.Channels]float64

	var values [raster.Channels][]float64
	for ch := range values {
		values[ch] = make([]float64, 0, len(samples))
	}
	bounds := img.Bounds()
	for _, p := range samples {
		if !p.In(bounds) {
			continue
		}
		i := img.Offset(p.X, p.Y)
		for ch := range values {
			values[ch] = append(values[ch], float64(img.Pix[i+ch]))
		}
	}

	if len(values[0]) == 0 {
		return ref, &GeometryError{Stage: "calibrate", Reason: "no border samples inside the raster"}
	}
	for ch, v := range values {
		ref[ch] = math.Sqrt(floats.Dot(v, v) / float64(len(v)))
	}
	return ref, nil
}

// BalanceRatios derives per-channel multipliers that move ref onto its own
// perceived brightness, sqrt(0.299 R² + 0.587 G² + 0.114 B²).
func BalanceRatios(ref [raster.Channels]float64) ([raster.Channels]float32, error) {
	var ratios [raster.Channels]float32

	target := 0.0
	for ch, v := range ref {
		if v <= 0 {
			return ratios, &GeometryError{
				Stage:  "calibrate",
				Reason: fmt.Sprintf("border reference has an empty %s channel", channelNames[ch]),
			}
		}
		target += lumaWeights[ch] * v * v
	}
	target = math.Sqrt(target)

	for ch, v := range ref {
		ratios[ch] = float32(target / v)
	}
	return ratios, nil
}

// WhiteBalance multiplies every channel by its ratio, clamping to Max.
func WhiteBalance(img *raster.RGB16, ratios [raster.Channels]float32, workers int) *raster.RGB16 {
	out := raster.New(img.Width, img.Height)
	rowLen := img.Width * raster.Channels
	parallel.Rows(img.Height, workers, func(start, end int) {
		for i := start * rowLen; i < end*rowLen; i++ {
			v := float32(img.Pix[i]) * ratios[i%raster.Channels]
			out.Pix[i] = uint16(min(v, raster.Max))
		}
	})
	return out
}

// Crop copies rect out of img. An empty intersection is a GeometryError.
func Crop(img *raster.RGB16, rect image.Rectangle) (*raster.RGB16, error) {
	clipped := rect.Intersect(img.Bounds())
	if clipped.Empty() {
		return nil, &GeometryError{Stage: "crop", Reason: fmt.Sprintf("crop rectangle %v has no area inside %v", rect, img.Bounds())}
	}
	return img.Region(clipped), nil
}

// Invert flips tonal polarity: every channel becomes Max minus its value.
func Invert(img *raster.RGB16, workers int) *raster.RGB16 {
	out := raster.New(img.Width, img.Height)
	rowLen := img.Width * raster.Channels
	parallel.Rows(img.Height, workers, func(start, end int) {
		for i := start * rowLen; i < end*rowLen; i++ {
			out.Pix[i] = raster.Max - img.Pix[i]
		}
	})
	return out
}
