package negative

import (
	"image"
	"testing"

	"film-negative-converter/internal/config"
	"film-negative-converter/internal/raster"
)

// framed builds a raster filled with border and a frame of interior.
func framed(w, h int, frame image.Rectangle, border, interior [3]uint16) *raster.RGB16 {
	img := raster.New(w, h)
	img.Fill(img.Bounds(), border[0], border[1], border[2])
	img.Fill(frame, interior[0], interior[1], interior[2])
	return img
}

func gray3(v uint16) [3]uint16 { return [3]uint16{v, v, v} }

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	return New(cfg)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func channelRange(img *raster.RGB16, ch int) (lo, hi uint16) {
	lo, hi = raster.Max, 0
	for i := ch; i < len(img.Pix); i += raster.Channels {
		lo = min(lo, img.Pix[i])
		hi = max(hi, img.Pix[i])
	}
	return lo, hi
}
