package imaging

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// Region represents a rectangular region within an image.
//
// Coordinates follow the standard image convention:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Region struct {
	X1 int `json:"x1"` // Left edge X coordinate (inclusive)
	Y1 int `json:"y1"` // Top edge Y coordinate (inclusive)
	X2 int `json:"x2"` // Right edge X coordinate (exclusive)
	Y2 int `json:"y2"` // Bottom edge Y coordinate (exclusive)
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// validate checks that r is non-empty and inside bounds.
func (r Region) validate(bounds image.Rectangle) error {
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2")
	}
	if !r.Rect().In(bounds) {
		return fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return nil
}

// StainSample summarizes the color of a reference stain region.
//
// Mean and StdDev are per-channel on the 8-bit OpenCV HSV scale. Suggested is a
// stain band centered on the sample; it is a starting point for recalibrating a
// new stain batch, not a validated threshold set.
type StainSample struct {
	Pixels    int                 `json:"pixels"`
	Mean      ihc.HSV             `json:"mean"`
	StdDev    ihc.HSV             `json:"std_dev"`
	Grade     ihc.Grade           `json:"grade"`
	Label     string              `json:"label"`
	Suggested ihc.StainThresholds `json:"suggested_stain"`
}

// SampleStain measures the HSV statistics of a region and grades it against cal.
//
// Parameters:
//   - img: The slide image.
//   - region: Area to sample, typically a clearly stained cell or patch.
//   - cal: Calibration used for the Grade field.
//
// Returns:
//   - *StainSample: Per-channel statistics, the current grade and a suggested band.
//   - error: Non-nil if the region is empty or outside the image.
//
// # Suggested Band
//
// The suggested band spans mean ± 2 standard deviations for hue and value, and
// mean - 2 standard deviations as the saturation floor, each clamped to the
// channel range.
func SampleStain(img image.Image, region Region, cal ihc.Calibration) (*StainSample, error) {
	if err := region.validate(img.Bounds()); err != nil {
		return nil, err
	}

	n := (region.X2 - region.X1) * (region.Y2 - region.Y1)
	hs := make([]float64, 0, n)
	ss := make([]float64, 0, n)
	vs := make([]float64, 0, n)

	for y := region.Y1; y < region.Y2; y++ {
		for x := region.X1; x < region.X2; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			c := ihc.ToHSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			hs = append(hs, c.H)
			ss = append(ss, c.S)
			vs = append(vs, c.V)
		}
	}

	hMean, hStd := meanStd(hs)
	sMean, sStd := meanStd(ss)
	vMean, vStd := meanStd(vs)

	mean := ihc.HSV{H: hMean, S: sMean, V: vMean}
	grade := ihc.GradeFor(mean, cal.Stain, cal.Grades)

	return &StainSample{
		Pixels: len(hs),
		Mean:   ihc.HSV{H: round(hMean, 2), S: round(sMean, 2), V: round(vMean, 2)},
		StdDev: ihc.HSV{H: round(hStd, 2), S: round(sStd, 2), V: round(vStd, 2)},
		Grade:  grade,
		Label:  grade.String(),
		Suggested: ihc.StainThresholds{
			HueMin: clampChannel(math.Floor(hMean-2*hStd), ihc.MaxHue-1),
			HueMax: clampChannel(math.Ceil(hMean+2*hStd), ihc.MaxHue-1),
			SatMin: clampChannel(math.Floor(sMean-2*sStd), 255),
			ValMin: clampChannel(math.Floor(vMean-2*vStd), 255),
			ValMax: clampChannel(math.Ceil(vMean+2*vStd), 255),
		},
	}, nil
}

// meanStd returns the mean and population standard deviation of xs.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return stat.Mean(xs, nil), 0
	}
	mean, variance := stat.PopMeanVariance(xs, nil)
	return mean, math.Sqrt(variance)
}

func clampChannel(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
