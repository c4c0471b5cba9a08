package negative

import (
	"math"
	"math/bits"

	"film-negative-converter/internal/parallel"
	"film-negative-converter/internal/raster"
)

// FullBins is the bin count of a histogram with one bucket per value.
const FullBins = raster.Max + 1

// Histogram holds one occurrence count slice per channel.
type Histogram [raster.Channels][]int

// BuildHistogram counts channel values into bins equal-width buckets.
// bins must be a power of two no larger than FullBins.
func BuildHistogram(img *raster.RGB16, bins, workers int) Histogram {
	shift := uint(bits.TrailingZeros(uint(FullBins / bins)))
	spans := parallel.Split(img.Height, workers)
	partial := make([]Histogram, len(spans))

	rowLen := img.Width * raster.Channels
	parallel.Run(spans, func(i int, s parallel.Span) {
		var h Histogram
		for ch := range h {
			h[ch] = make([]int, bins)
		}
		for j := s.Start * rowLen; j < s.End*rowLen; j += raster.Channels {
			for ch := 0; ch < raster.Channels; ch++ {
				h[ch][img.Pix[j+ch]>>shift]++
			}
		}
		partial[i] = h
	})

	var hist Histogram
	for ch := range hist {
		hist[ch] = make([]int, bins)
	}
	for _, h := range partial {
		for ch := range hist {
			for b, n := range h[ch] {
				hist[ch][b] += n
			}
		}
	}
	return hist
}

// FindCutoff scans hist from the bottom (or from the top when fromTop is
// set) and returns the first bin at which the running share of pixels
// exceeds pct. If the share never exceeds pct the end bin is returned.
func FindCutoff(hist []int, fromTop bool, pct float64) int {
	total := 0
	for _, n := range hist {
		total += n
	}

	count := 0
	for i := range hist {
		bin := scanBin(len(hist), i, fromTop)
		count += hist[bin]
		if total > 0 && float64(count)/float64(total) > pct {
			return bin
		}
	}
	return scanBin(len(hist), 0, fromTop)
}

// FindRefinedCutoff scans like FindCutoff but also stops at a histogram
// cliff: a non-empty bin whose count differs from the previous non-empty
// bin by more than pctDiff of all pixels. Whichever test fires first wins.
// No scan runs beyond ceiling.
func FindRefinedCutoff(hist []int, fromTop bool, pct, pctDiff, ceiling float64) int {
	total := 0
	for _, n := range hist {
		total += n
	}
	if total == 0 {
		return scanBin(len(hist), 0, fromTop)
	}

	limit := math.Min(pct, ceiling)
	count, prev := 0, -1
	for i := range hist {
		bin := scanBin(len(hist), i, fromTop)
		n := hist[bin]
		if n == 0 {
			continue
		}
		count += n

		if prev >= 0 && math.Abs(float64(n-prev))/float64(total) > pctDiff {
			return bin
		}
		if float64(count)/float64(total) > limit {
			return bin
		}
		prev = n
	}
	return scanBin(len(hist), len(hist)-1, fromTop)
}

func scanBin(bins, i int, fromTop bool) int {
	if fromTop {
		return bins - 1 - i
	}
	return i
}

// SmoothHistogram averages every bin with its radius neighbours on each
// side, rounding to the nearest count. Bins near the ends average over the
// neighbours they have. A radius of 0 returns a copy.
func SmoothHistogram(hist []int, radius int) []int {
	out := make([]int, len(hist))
	for b := range hist {
		lo, hi := max(0, b-radius), min(len(hist)-1, b+radius)
		sum := 0
		for _, n := range hist[lo : hi+1] {
			sum += n
		}
		taps := hi - lo + 1
		out[b] = (sum + taps/2) / taps
	}
	return out
}

// Rescale maps [low, high] of each channel linearly onto [0, Max], clamping.
// Each channel needs high > low.
func Rescale(img *raster.RGB16, low, high [raster.Channels]uint16, workers int) *raster.RGB16 {
	var offset, scale [raster.Channels]float32
	for ch := range scale {
		offset[ch] = float32(low[ch])
		scale[ch] = raster.Max / (float32(high[ch]) - float32(low[ch]))
	}

	out := raster.New(img.Width, img.Height)
	rowLen := img.Width * raster.Channels
	parallel.Rows(img.Height, workers, func(start, end int) {
		for i := start * rowLen; i < end*rowLen; i++ {
			ch := i % raster.Channels
			v := (float32(img.Pix[i]) - offset[ch]) * scale[ch]
			out.Pix[i] = uint16(min(max(v, 0), raster.Max))
		}
	})
	return out
}

// StretchTone stretches every channel to the full range in two passes: a
// loose percentile cut on a full-resolution histogram, then a refined cut
// on a coarser, box-smoothed one that also reacts to histogram cliffs.
func (c *Converter) StretchTone(img *raster.RGB16) (*raster.RGB16, error) {
	if img.Empty() {
		return nil, &ToneMapError{Reason: "empty raster"}
	}
	cfg := c.cfg

	hist := BuildHistogram(img, FullBins, cfg.Workers)
	var low, high [raster.Channels]uint16
	for ch := range hist {
		low[ch] = uint16(FindCutoff(hist[ch], false, cfg.MaxPixelsPct/10))
		high[ch] = uint16(FindCutoff(hist[ch], true, cfg.MaxPixelsPct/10))
	}
	if err := checkRange(1, low, high); err != nil {
		return nil, err
	}
	c.logf("tone pass 1 low=%v high=%v", low, high)
	coarse := Rescale(img, low, high, cfg.Workers)

	width := FullBins / cfg.RefineBins
	hist = BuildHistogram(coarse, cfg.RefineBins, cfg.Workers)
	for ch := range hist {
		hist[ch] = SmoothHistogram(hist[ch], cfg.RefineSmoothing)
		lo := FindRefinedCutoff(hist[ch], false, cfg.MaxPixelsPct, cfg.MaxPixelsPctDiff, cfg.MaxCutoffPct)
		hi := FindRefinedCutoff(hist[ch], true, cfg.MaxPixelsPct, cfg.MaxPixelsPctDiff, cfg.MaxCutoffPct)
		low[ch] = uint16(lo * width)
		high[ch] = uint16((hi+1)*width - 1)
	}
	if err := checkRange(2, low, high); err != nil {
		return nil, err
	}
	c.logf("tone pass 2 low=%v high=%v", low, high)
	return Rescale(coarse, low, high, cfg.Workers), nil
}

func checkRange(pass int, low, high [raster.Channels]uint16) error {
	for ch := range low {
		if high[ch] <= low[ch] {
			return &ToneMapError{Pass: pass, Channel: ch, Low: low[ch], High: high[ch]}
		}
	}
	return nil
}
