// Package config holds the tunable thresholds of the negative conversion
// pipeline.
package config

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/BurntSushi/toml"
)

// Config collects every threshold, radius and percentile used by the
// pipeline. The zero value is not usable; start from Default.
type Config struct {
	// AnalysisSize caps the longest side of the downscaled analysis raster.
	AnalysisSize int `toml:"analysis_size"`

	// BlackThreshold and WhiteThreshold bound the luma values kept after the
	// first normalisation. Anything darker or brighter is treated as mount
	// border or light leak.
	BlackThreshold uint8 `toml:"black_threshold"`
	WhiteThreshold uint8 `toml:"white_threshold"`

	// MedianRadius is the median filter radius; the kernel is 2r+1 wide.
	MedianRadius int `toml:"median_radius"`

	// Contrast is the contrast boost in percent applied before edge detection.
	Contrast float64 `toml:"contrast"`

	// CannyLow and CannyHigh are the hysteresis thresholds of the edge detector.
	CannyLow  float32 `toml:"canny_low"`
	CannyHigh float32 `toml:"canny_high"`

	// MinContourPoints discards shorter contours as noise.
	MinContourPoints int `toml:"min_contour_points"`

	// SampleGap is the width of the border sampling band as a fraction of
	// the analysis raster's width and height.
	SampleGap float64 `toml:"sample_gap"`

	// AspectRatio is the target crop width/height.
	AspectRatio float64 `toml:"aspect_ratio"`
	// AutoOrient picks whichever of AspectRatio and 1/AspectRatio is closer
	// to the located frame.
	AutoOrient bool `toml:"auto_orient"`
	// CropPercentage is the extra per-side inset, as a fraction of the full
	// image dimensions.
	CropPercentage float64 `toml:"crop_percentage"`

	// MaxPixelsPct is the cumulative fraction that places a refined cutoff.
	// The coarse pass uses a tenth of it.
	MaxPixelsPct float64 `toml:"max_pixels_pct"`
	// MaxPixelsPctDiff is the normalised bucket-to-bucket change that marks
	// a histogram cliff.
	MaxPixelsPctDiff float64 `toml:"max_pixels_pct_diff"`
	// MaxCutoffPct bounds every cutoff scan.
	MaxCutoffPct float64 `toml:"max_cutoff_pct"`
	// RefineBins is the bin count of the refinement histogram.
	RefineBins int `toml:"refine_bins"`
	// RefineSmoothing is the box filter radius, in bins, applied to the
	// refinement histogram. 0 disables smoothing.
	RefineSmoothing int `toml:"refine_smoothing"`

	// Workers bounds per-stage parallelism; 0 means one per CPU.
	Workers int `toml:"workers"`
}

// Default returns the tuned defaults.
func Default() Config {
	return Config{
		AnalysisSize:     500,
		BlackThreshold:   20,
		WhiteThreshold:   240,
		MedianRadius:     1,
		Contrast:         50,
		CannyLow:         3,
		CannyHigh:        100,
		MinContourPoints: 45,
		SampleGap:        0.03,
		AspectRatio:      1.5,
		CropPercentage:   0,
		MaxPixelsPct:     0.004,
		MaxPixelsPctDiff: 0.001,
		MaxCutoffPct:     0.005,
		RefineBins:       256,
		RefineSmoothing:  1,
	}
}

// Load overlays the TOML file at path on Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.AnalysisSize < 16 {
		errs = append(errs, fmt.Errorf("analysis_size must be at least 16, got %d", c.AnalysisSize))
	}
	if c.BlackThreshold >= c.WhiteThreshold {
		errs = append(errs, fmt.Errorf("black_threshold (%d) must be below white_threshold (%d)", c.BlackThreshold, c.WhiteThreshold))
	}
	if c.MedianRadius < 0 {
		errs = append(errs, fmt.Errorf("median_radius must not be negative, got %d", c.MedianRadius))
	}
	if c.CannyLow <= 0 || c.CannyHigh <= c.CannyLow {
		errs = append(errs, fmt.Errorf("canny thresholds must satisfy 0 < low < high, got %v/%v", c.CannyLow, c.CannyHigh))
	}
	if c.MinContourPoints < 1 {
		errs = append(errs, fmt.Errorf("min_contour_points must be positive, got %d", c.MinContourPoints))
	}
	if c.SampleGap <= 0 || c.SampleGap >= 0.5 {
		errs = append(errs, fmt.Errorf("sample_gap must be in (0, 0.5), got %v", c.SampleGap))
	}
	if c.AspectRatio <= 0 {
		errs = append(errs, fmt.Errorf("aspect_ratio must be positive, got %v", c.AspectRatio))
	}
	if c.CropPercentage < 0 || c.CropPercentage >= 0.5 {
		errs = append(errs, fmt.Errorf("crop_percentage must be in [0, 0.5), got %v", c.CropPercentage))
	}
	if c.MaxPixelsPct <= 0 || c.MaxPixelsPct >= 1 {
		errs = append(errs, fmt.Errorf("max_pixels_pct must be in (0, 1), got %v", c.MaxPixelsPct))
	}
	if c.MaxPixelsPctDiff <= 0 || c.MaxPixelsPctDiff >= 1 {
		errs = append(errs, fmt.Errorf("max_pixels_pct_diff must be in (0, 1), got %v", c.MaxPixelsPctDiff))
	}
	if c.MaxCutoffPct <= 0 || c.MaxCutoffPct >= 0.5 {
		errs = append(errs, fmt.Errorf("max_cutoff_pct must be in (0, 0.5), got %v", c.MaxCutoffPct))
	}
	if c.RefineBins < 2 || c.RefineBins > 1<<16 || bits.OnesCount(uint(c.RefineBins)) != 1 {
		errs = append(errs, fmt.Errorf("refine_bins must be a power of two in [2, 65536], got %d", c.RefineBins))
	}
	if c.RefineSmoothing < 0 || c.RefineSmoothing >= c.RefineBins/2 {
		errs = append(errs, fmt.Errorf("refine_smoothing must be in [0, refine_bins/2), got %d", c.RefineSmoothing))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}

	return errors.Join(errs...)
}
