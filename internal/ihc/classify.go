package ihc

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
)

// HSV is a color on the 8-bit OpenCV scale (H 0-179, S 0-255, V 0-255).
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// Classification is the outcome of grading one cell.
type Classification struct {
	Grade Grade  `json:"grade"`
	Label string `json:"label"`

	// Mean is the average color over the masked pixels. Zero when Pixels is 0.
	Mean HSV `json:"mean_hsv"`

	// Pixels is the number of masked pixels that were averaged.
	Pixels int `json:"pixels"`
}

// Classify grades a cell from the color of its masked pixels.
//
// Parameters:
//   - region: The cell's crop from the color image. Mask pixel (0,0) maps to
//     region.Bounds().Min.
//   - mask: The cell's segmentation mask. Pixels outside the region are skipped.
//   - cal: Stain and grade thresholds.
//
// # Algorithm
//
//  1. Convert every masked pixel to 8-bit HSV (see ToHSV)
//  2. Average H, S and V independently
//  3. Apply GradeFor to the mean
//
// A mask that selects no pixels yields GradeNegative. Hue is averaged
// arithmetically, so reds wrapping around 0/179 average toward mid-scale.
func Classify(region image.Image, mask *Mask, cal Calibration) Classification {
	origin := region.Bounds().Min
	bounds := region.Bounds()

	n := mask.Count()
	hs := make([]float64, 0, n)
	ss := make([]float64, 0, n)
	vs := make([]float64, 0, n)

	for y := 0; y < mask.Height(); y++ {
		for x := 0; x < mask.Width(); x++ {
			if !mask.At(x, y) {
				continue
			}
			p := image.Pt(origin.X+x, origin.Y+y)
			if !p.In(bounds) {
				continue
			}
			r, g, b, _ := region.At(p.X, p.Y).RGBA()
			c := ToHSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			hs = append(hs, c.H)
			ss = append(ss, c.S)
			vs = append(vs, c.V)
		}
	}

	if len(hs) == 0 {
		return Classification{Grade: GradeNegative, Label: GradeNegative.String()}
	}

	mean := HSV{
		H: stat.Mean(hs, nil),
		S: stat.Mean(ss, nil),
		V: stat.Mean(vs, nil),
	}
	grade := GradeFor(mean, cal.Stain, cal.Grades)
	return Classification{Grade: grade, Label: grade.String(), Mean: mean, Pixels: len(hs)}
}

// GradeFor is the grading decision for a mean cell color.
//
// The color is stain-positive (DAB brown) when hue and value fall inside their
// inclusive ranges and saturation reaches the minimum. Positive colors are then
// banded by value: darker means stronger staining.
func GradeFor(c HSV, stain StainThresholds, grades GradeThresholds) Grade {
	if !IsStain(c, stain) {
		return GradeNegative
	}
	switch {
	case c.V < grades.StrongBelow:
		return GradeStrong
	case c.V < grades.ModerateBelow:
		return GradeModerate
	default:
		return GradeWeak
	}
}

// IsStain reports whether c lies inside the stain detection band.
func IsStain(c HSV, stain StainThresholds) bool {
	return c.H >= stain.HueMin && c.H <= stain.HueMax &&
		c.S >= stain.SatMin &&
		c.V >= stain.ValMin && c.V <= stain.ValMax
}

// ToHSV converts an 8-bit RGB color to 8-bit OpenCV HSV.
//
// go-colorful yields hue in degrees and saturation/value in 0-1. These are
// rescaled to H = deg/2, S = s*255, V = v*255 and rounded to integers, matching
// an 8-bit HSV image.
func ToHSV(r, g, b uint8) HSV {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	h, s, v := c.Hsv()

	hue := math.Round(h / 2)
	if hue >= MaxHue {
		hue -= MaxHue
	}
	return HSV{
		H: hue,
		S: math.Round(s * 255),
		V: math.Round(v * 255),
	}
}
