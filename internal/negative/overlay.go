package negative

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"film-negative-converter/internal/raster"
)

// drawBorderOverlay paints the border samples (blue), the located frame
// (green) and the crop (red) over the analysis raster.
func drawBorderOverlay(loc *located, crop CropRect) (image.Image, error) {
	gray, err := raster.GrayToMat(loc.analysis.Gray)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	img := gocv.NewMat()
	defer img.Close()
	gocv.CvtColor(gray, &img, gocv.ColorGrayToBGR)

	for _, p := range loc.samples {
		img.SetUCharAt(p.Y, p.X*3+0, 255)
		img.SetUCharAt(p.Y, p.X*3+1, 0)
		img.SetUCharAt(p.Y, p.X*3+2, 0)
	}

	gocv.Rectangle(&img, loc.frame.Bounds, color.RGBA{0, 255, 0, 255}, 1)

	small := crop.Scale(loc.analysis.ScaleX, loc.analysis.ScaleY).Pixels()
	gocv.Rectangle(&img, small, color.RGBA{255, 0, 0, 255}, 2)

	center := image.Pt((small.Min.X+small.Max.X)/2, (small.Min.Y+small.Max.Y)/2)
	gocv.Circle(&img, center, 3, color.RGBA{255, 0, 0, 255}, 2)

	return img.ToImage()
}
