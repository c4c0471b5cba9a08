package negative

import (
	"image"
	"math"
)

// CropRect is a crop rectangle in full-resolution pixel units. It stays in
// floating point so the aspect ratio is exact until pixels are cut.
type CropRect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Dx returns the width.
func (r CropRect) Dx() float64 { return r.MaxX - r.MinX }

// Dy returns the height.
func (r CropRect) Dy() float64 { return r.MaxY - r.MinY }

// Aspect returns width/height, or 0 for a zero-height rectangle.
func (r CropRect) Aspect() float64 {
	if r.Dy() <= 0 {
		return 0
	}
	return r.Dx() / r.Dy()
}

// Pixels rounds the rectangle to whole pixels, rounding the size rather
// than each edge so the aspect ratio drifts by at most one pixel.
func (r CropRect) Pixels() image.Rectangle {
	x0 := int(math.Round(r.MinX))
	y0 := int(math.Round(r.MinY))
	return image.Rect(x0, y0, x0+int(math.Round(r.Dx())), y0+int(math.Round(r.Dy())))
}

// Scale multiplies every coordinate by sx or sy.
func (r CropRect) Scale(sx, sy float64) CropRect {
	return CropRect{MinX: r.MinX * sx, MinY: r.MinY * sy, MaxX: r.MaxX * sx, MaxY: r.MaxY * sy}
}

// ComputeCrop fits a rectangle of the given aspect ratio (width/height)
// inside bounds. inset is an extra per-side margin as a fraction of the full
// image size. A frame wider than the target keeps its (inset) height and is
// centred horizontally; a taller one keeps its width and is centred
// vertically. Degenerate bounds yield a zero-area rectangle.
func ComputeCrop(bounds image.Rectangle, size image.Point, aspect, inset float64) CropRect {
	minX, minY := float64(bounds.Min.X), float64(bounds.Min.Y)
	maxX, maxY := float64(bounds.Max.X), float64(bounds.Max.Y)
	w, h := maxX-minX, maxY-minY

	if w <= 0 || h <= 0 || aspect <= 0 {
		return CropRect{MinX: minX, MinY: minY, MaxX: minX, MaxY: minY}
	}

	insetX := inset * float64(size.X)
	insetY := inset * float64(size.Y)

	if w/h >= aspect {
		top := minY + insetY
		bottom := math.Max(top, maxY-insetY)
		width := (bottom - top) * aspect
		cx := (minX + maxX) / 2
		return CropRect{MinX: cx - width/2, MinY: top, MaxX: cx + width/2, MaxY: bottom}
	}

	left := minX + insetX
	right := math.Max(left, maxX-insetX)
	height := (right - left) / aspect
	cy := (minY + maxY) / 2
	return CropRect{MinX: left, MinY: cy - height/2, MaxX: right, MaxY: cy + height/2}
}

// OrientAspect returns aspect or its reciprocal, whichever is closer to the
// shape of bounds, so portrait frames get a portrait crop.
func OrientAspect(bounds image.Rectangle, aspect float64) float64 {
	if bounds.Dy() == 0 || aspect <= 0 {
		return aspect
	}
	r := float64(bounds.Dx()) / float64(bounds.Dy())
	if math.Abs(r-aspect) <= math.Abs(r-1/aspect) {
		return aspect
	}
	return 1 / aspect
}

// RetainedFraction is the share of the full image kept by the crop.
func RetainedFraction(crop CropRect, size image.Point) float64 {
	if size.X == 0 || size.Y == 0 {
		return 0
	}
	return math.Max(0, crop.Dx()*crop.Dy()) / (float64(size.X) * float64(size.Y))
}
