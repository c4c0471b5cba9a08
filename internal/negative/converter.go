// Package negative turns a linear 16-bit scan of a film negative into a
// colour-corrected positive.
//
// The pipeline locates the film frame on a downscaled luma copy, samples the
// film border for white balance, crops to a target aspect ratio, inverts and
// finally stretches each channel to the full 16-bit range. Every stage
// returns a new raster and leaves its input untouched.
package negative

import (
	"image"
	"log"

	"film-negative-converter/internal/config"
	"film-negative-converter/internal/raster"
)

// Stage names passed to a DebugSink.
const (
	StageGrayscale     = "grayscale"
	StageBorderless    = "borderless"
	StageEdges         = "edges"
	StageBorderOverlay = "border-overlay"
	StageInverted      = "inverted"
)

// DebugSink receives intermediate rasters for diagnostics. It never
// influences the numeric result.
type DebugSink interface {
	Debug(stage string, img image.Image)
}

// DebugFunc adapts a function to DebugSink.
type DebugFunc func(stage string, img image.Image)

// Debug implements DebugSink.
func (f DebugFunc) Debug(stage string, img image.Image) { f(stage, img) }

func emit(sink DebugSink, stage string, img image.Image) {
	if sink != nil && img != nil {
		sink.Debug(stage, img)
	}
}

// Border is the located film frame and the pixels believed to lie on the
// film's border material, both in full-resolution coordinates.
type Border struct {
	Bounds  image.Rectangle
	Samples []image.Point
}

// Result is the output of Process together with the geometry behind it.
type Result struct {
	Image  *raster.RGB16
	Border Border
	Crop   CropRect
	Aspect float64
}

// Converter runs the conversion pipeline with a fixed configuration. It is
// safe for concurrent use.
type Converter struct {
	cfg        config.Config
	classifier SampleClassifier
	logger     *log.Logger
}

// Option configures a Converter.
type Option func(c *Converter)

// WithClassifier replaces the border sample classifier.
func WithClassifier(sc SampleClassifier) Option {
	return func(c *Converter) {
		c.classifier = sc
	}
}

// WithLogger enables diagnostic output.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// New creates a Converter. The default classifier picks the modal border
// tone, see ModalClassifier.
func New(cfg config.Config, opts ...Option) *Converter {
	c := &Converter{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.classifier == nil {
		c.classifier = ModalClassifier{Gap: cfg.SampleGap}
	}
	return c
}

// Config returns the configuration the Converter was built with.
func (c *Converter) Config() config.Config { return c.cfg }

func (c *Converter) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Convert runs the full pipeline: locate the border, compute the crop,
// calibrate and crop, invert and stretch.
func (c *Converter) Convert(img *raster.RGB16, aspect, inset float64, sink DebugSink) (*raster.RGB16, error) {
	res, err := c.Process(img, aspect, inset, sink)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// Process is Convert that also reports the located border and crop.
func (c *Converter) Process(img *raster.RGB16, aspect, inset float64, sink DebugSink) (*Result, error) {
	loc, err := c.locate(img, sink)
	if err != nil {
		return nil, err
	}

	if c.cfg.AutoOrient {
		aspect = OrientAspect(loc.border.Bounds, aspect)
	}
	crop := ComputeCrop(loc.border.Bounds, img.Bounds().Size(), aspect, inset)
	c.logf("crop aspect=%.4f inset=%.4f rect=%+v", aspect, inset, crop)

	if sink != nil {
		overlay, err := drawBorderOverlay(loc, crop)
		if err != nil {
			c.logf("border overlay: %v", err)
		} else {
			emit(sink, StageBorderOverlay, overlay)
		}
	}

	calibrated, err := c.CalibrateAndCrop(img, loc.border, crop)
	if err != nil {
		return nil, err
	}
	emit(sink, StageInverted, calibrated)

	out, err := c.StretchTone(calibrated)
	if err != nil {
		return nil, err
	}

	return &Result{Image: out, Border: loc.border, Crop: crop, Aspect: aspect}, nil
}
