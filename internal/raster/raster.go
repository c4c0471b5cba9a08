// Package raster holds the 16-bit working image used by the conversion
// pipeline and the bridges between it, the standard image types and gocv.
package raster

import (
	"image"
	"image/color"

	"film-negative-converter/internal/parallel"
)

// Max is the largest representable channel value.
const Max = 0xffff

// Channels is the number of interleaved samples per pixel.
const Channels = 3

// RGB16 is a row-major, 3-channel, 16-bit-per-channel raster with its origin
// at the top left. Samples are stored R, G, B interleaved.
type RGB16 struct {
	Pix    []uint16
	Width  int
	Height int
}

// New allocates a black raster.
func New(width, height int) *RGB16 {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &RGB16{
		Pix:    make([]uint16, width*height*Channels),
		Width:  width,
		Height: height,
	}
}

// Empty reports whether the raster has no pixels.
func (r *RGB16) Empty() bool {
	return r == nil || r.Width == 0 || r.Height == 0
}

// Offset returns the index of the red sample of pixel (x, y).
func (r *RGB16) Offset(x, y int) int {
	return (y*r.Width + x) * Channels
}

// RGB returns the three channel values at (x, y).
func (r *RGB16) RGB(x, y int) (uint16, uint16, uint16) {
	i := r.Offset(x, y)
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Set writes the three channel values at (x, y).
func (r *RGB16) Set(x, y int, red, green, blue uint16) {
	i := r.Offset(x, y)
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = red, green, blue
}

// Fill sets every pixel inside rect to the given value.
func (r *RGB16) Fill(rect image.Rectangle, red, green, blue uint16) {
	rect = rect.Intersect(r.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r.Set(x, y, red, green, blue)
		}
	}
}

// Clone returns a deep copy.
func (r *RGB16) Clone() *RGB16 {
	out := &RGB16{Pix: make([]uint16, len(r.Pix)), Width: r.Width, Height: r.Height}
	copy(out.Pix, r.Pix)
	return out
}

// Region copies the pixels inside rect into a new raster. rect is clipped to
// the raster bounds first.
func (r *RGB16) Region(rect image.Rectangle) *RGB16 {
	rect = rect.Intersect(r.Bounds())
	out := New(rect.Dx(), rect.Dy())
	rowLen := rect.Dx() * Channels
	for y := 0; y < out.Height; y++ {
		src := r.Offset(rect.Min.X, rect.Min.Y+y)
		copy(out.Pix[y*rowLen:(y+1)*rowLen], r.Pix[src:src+rowLen])
	}
	return out
}

// ColorModel implements image.Image.
func (r *RGB16) ColorModel() color.Model { return color.RGBA64Model }

// Bounds implements image.Image.
func (r *RGB16) Bounds() image.Rectangle { return image.Rect(0, 0, r.Width, r.Height) }

// At implements image.Image.
func (r *RGB16) At(x, y int) color.Color { return r.RGBA64At(x, y) }

// RGBA64At implements image.RGBA64Image.
func (r *RGB16) RGBA64At(x, y int) color.RGBA64 {
	if !(image.Point{X: x, Y: y}).In(r.Bounds()) {
		return color.RGBA64{}
	}
	red, green, blue := r.RGB(x, y)
	return color.RGBA64{R: red, G: green, B: blue, A: Max}
}

// FromImage converts any image into an RGB16, dropping alpha. The common
// 16-bit standard library types take a direct path.
func FromImage(img image.Image) *RGB16 {
	b := img.Bounds()
	out := New(b.Dx(), b.Dy())

	parallel.Rows(out.Height, 0, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < out.Width; x++ {
				var red, green, blue uint16
				switch src := img.(type) {
				case *image.RGBA64:
					c := src.RGBA64At(x+b.Min.X, y+b.Min.Y)
					red, green, blue = c.R, c.G, c.B
				case *image.NRGBA64:
					c := src.NRGBA64At(x+b.Min.X, y+b.Min.Y)
					red, green, blue = c.R, c.G, c.B
				default:
					r32, g32, b32, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
					red, green, blue = uint16(r32), uint16(g32), uint16(b32)
				}
				out.Set(x, y, red, green, blue)
			}
		}
	})
	return out
}

// ToRGBA64 converts to an opaque *image.RGBA64, the 16-bit type understood
// by the standard and x/image encoders.
func (r *RGB16) ToRGBA64() *image.RGBA64 {
	out := image.NewRGBA64(r.Bounds())
	parallel.Rows(r.Height, 0, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < r.Width; x++ {
				red, green, blue := r.RGB(x, y)
				out.SetRGBA64(x, y, color.RGBA64{R: red, G: green, B: blue, A: Max})
			}
		}
	})
	return out
}

// ToNRGBA reduces the raster to 8 bits per channel.
func (r *RGB16) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(r.Bounds())
	parallel.Rows(r.Height, 0, func(start, end int) {
		for y := start; y < end; y++ {
			row := out.Pix[y*out.Stride:]
			for x := 0; x < r.Width; x++ {
				red, green, blue := r.RGB(x, y)
				row[x*4+0] = uint8(red >> 8)
				row[x*4+1] = uint8(green >> 8)
				row[x*4+2] = uint8(blue >> 8)
				row[x*4+3] = 0xff
			}
		}
	})
	return out
}
