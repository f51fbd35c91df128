package ihc

import (
	"fmt"
	"math"
)

// Default calibration constants.
//
// The stain and grade thresholds were tuned on DAB-stained slides scanned at 40x.
// Real deployments recalibrate them per stain batch; see Calibration.
const (
	// DefaultPixelsPerMM is the pixel density of a 40x scan.
	DefaultPixelsPerMM = 350.0

	// DefaultIODNormalization maps mean optical density into a roughly 0-1 display
	// range. It is an empirical display scale, not a physical unit.
	DefaultIODNormalization = 100000.0

	// MaxHue is the exclusive upper bound of the 8-bit hue scale (OpenCV convention).
	MaxHue = 180
)

// StainThresholds decides whether a cell's mean color is DAB brown.
//
// Hue is on the 0-179 scale, saturation and value on 0-255. All bounds are
// inclusive.
type StainThresholds struct {
	HueMin float64 `json:"hue_min" yaml:"hue_min" mapstructure:"hue_min"`
	HueMax float64 `json:"hue_max" yaml:"hue_max" mapstructure:"hue_max"`
	SatMin float64 `json:"sat_min" yaml:"sat_min" mapstructure:"sat_min"`
	ValMin float64 `json:"val_min" yaml:"val_min" mapstructure:"val_min"`
	ValMax float64 `json:"val_max" yaml:"val_max" mapstructure:"val_max"`
}

// GradeThresholds bands the mean value (brightness) of a stain-positive cell.
//
// Darker cells carry more stain:
//   - value < StrongBelow -> strong positive (3)
//   - value < ModerateBelow -> moderate positive (2)
//   - otherwise -> weak positive (1)
type GradeThresholds struct {
	StrongBelow   float64 `json:"strong_below" yaml:"strong_below" mapstructure:"strong_below"`
	ModerateBelow float64 `json:"moderate_below" yaml:"moderate_below" mapstructure:"moderate_below"`
}

// Calibration holds every tunable parameter of the engine.
//
// Calibration is passed by value; the With* helpers return modified copies and
// never touch the receiver.
type Calibration struct {
	// PixelsPerMM is the number of image pixels per millimeter at the scan's
	// magnification. Must be > 0.
	PixelsPerMM float64 `json:"pixels_per_mm" yaml:"pixels_per_mm" mapstructure:"pixels_per_mm"`

	Stain  StainThresholds `json:"stain" yaml:"stain" mapstructure:"stain"`
	Grades GradeThresholds `json:"grades" yaml:"grades" mapstructure:"grades"`

	// IODNormalization divides the mean optical density for display.
	IODNormalization float64 `json:"iod_normalization" yaml:"iod_normalization" mapstructure:"iod_normalization"`
}

// DefaultCalibration returns the calibration used for DAB slides at 40x.
func DefaultCalibration() Calibration {
	return Calibration{
		PixelsPerMM: DefaultPixelsPerMM,
		Stain: StainThresholds{
			// Yellow to orange-brown, not gray, mid brightness
			HueMin: 10,
			HueMax: 30,
			SatMin: 50,
			ValMin: 50,
			ValMax: 200,
		},
		Grades: GradeThresholds{
			StrongBelow:   100,
			ModerateBelow: 150,
		},
		IODNormalization: DefaultIODNormalization,
	}
}

// WithPixelsPerMM returns a copy of c using the given magnification ratio.
func (c Calibration) WithPixelsPerMM(ratio float64) Calibration {
	c.PixelsPerMM = ratio
	return c
}

// WithStain returns a copy of c with custom stain detection bounds.
// Useful when the stain color has been sampled from a reference slide.
func (c Calibration) WithStain(hMin, hMax, sMin, vMin, vMax float64) Calibration {
	c.Stain = StainThresholds{HueMin: hMin, HueMax: hMax, SatMin: sMin, ValMin: vMin, ValMax: vMax}
	return c
}

// WithGrades returns a copy of c with custom intensity bands.
func (c Calibration) WithGrades(strongBelow, moderateBelow float64) Calibration {
	c.Grades = GradeThresholds{StrongBelow: strongBelow, ModerateBelow: moderateBelow}
	return c
}

// Validate reports the first problem found in c.
//
// A non-positive PixelsPerMM wraps ErrInvalidRatio; every other problem wraps
// ErrInvalidCalibration.
func (c Calibration) Validate() error {
	if err := validateRatio(c.PixelsPerMM); err != nil {
		return err
	}
	s := c.Stain
	switch {
	case s.HueMin < 0 || s.HueMax >= MaxHue || s.HueMin > s.HueMax:
		return fmt.Errorf("%w: hue range [%g,%g] must lie within [0,%d)", ErrInvalidCalibration, s.HueMin, s.HueMax, MaxHue)
	case s.SatMin < 0 || s.SatMin > 255:
		return fmt.Errorf("%w: saturation minimum %g outside 0-255", ErrInvalidCalibration, s.SatMin)
	case s.ValMin < 0 || s.ValMax > 255 || s.ValMin > s.ValMax:
		return fmt.Errorf("%w: value range [%g,%g] must lie within 0-255", ErrInvalidCalibration, s.ValMin, s.ValMax)
	case c.Grades.StrongBelow > c.Grades.ModerateBelow:
		return fmt.Errorf("%w: strong band (%g) must not exceed moderate band (%g)",
			ErrInvalidCalibration, c.Grades.StrongBelow, c.Grades.ModerateBelow)
	case c.IODNormalization <= 0:
		return fmt.Errorf("%w: IOD normalization must be > 0, got %g", ErrInvalidCalibration, c.IODNormalization)
	}
	return nil
}

func validateRatio(ratio float64) error {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidRatio, ratio)
	}
	return nil
}
