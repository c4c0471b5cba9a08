package raster

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GrayToMat copies an 8-bit gray image into a CV_8UC1 Mat owned by the caller.
func GrayToMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	pix := img.Pix
	if img.Stride != w || b.Min != (image.Point{}) {
		pix = make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	}

	// NewMatFromBytes may reference Go memory; clone so the Mat owns its data.
	ref, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("gray to mat: %w", err)
	}
	defer ref.Close()
	return ref.Clone(), nil
}

// MatToGray copies a CV_8UC1 Mat into a new *image.Gray.
func MatToGray(m gocv.Mat) (*image.Gray, error) {
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("mat to gray: unexpected mat type %v", m.Type())
	}
	w, h := m.Cols(), m.Rows()
	out := image.NewGray(image.Rect(0, 0, w, h))
	copy(out.Pix, m.ToBytes())
	return out, nil
}
