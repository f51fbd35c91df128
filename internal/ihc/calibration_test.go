package ihc

import (
	"errors"
	"testing"
)

func TestDefaultCalibration(t *testing.T) {
	cal := DefaultCalibration()
	if err := cal.Validate(); err != nil {
		t.Fatalf("default calibration invalid: %v", err)
	}
	if cal.PixelsPerMM != 350 {
		t.Errorf("PixelsPerMM: got %v, want 350", cal.PixelsPerMM)
	}
	want := StainThresholds{HueMin: 10, HueMax: 30, SatMin: 50, ValMin: 50, ValMax: 200}
	if cal.Stain != want {
		t.Errorf("Stain: got %+v, want %+v", cal.Stain, want)
	}
	if cal.Grades != (GradeThresholds{StrongBelow: 100, ModerateBelow: 150}) {
		t.Errorf("Grades: got %+v", cal.Grades)
	}
	if cal.IODNormalization != 100000 {
		t.Errorf("IODNormalization: got %v", cal.IODNormalization)
	}
}

func TestCalibration_HueScale(t *testing.T) {
	// Thresholds live on the 0-179 hue scale; the DAB band must sit well inside it.
	cal := DefaultCalibration()
	if cal.Stain.HueMax >= MaxHue/2 {
		t.Errorf("DAB hue band %v-%v looks like a 0-360 scale", cal.Stain.HueMin, cal.Stain.HueMax)
	}
	if MaxHue != 180 {
		t.Errorf("MaxHue: got %d, want 180", MaxHue)
	}
}

func TestCalibration_WithDoesNotMutate(t *testing.T) {
	base := DefaultCalibration()
	_ = base.WithPixelsPerMM(175).WithStain(0, 40, 10, 10, 250).WithGrades(80, 140)

	if base != DefaultCalibration() {
		t.Errorf("receiver mutated: %+v", base)
	}
}

func TestCalibration_Validate(t *testing.T) {
	tests := []struct {
		name string
		cal  Calibration
		want error
	}{
		{"zero ratio", DefaultCalibration().WithPixelsPerMM(0), ErrInvalidRatio},
		{"negative ratio", DefaultCalibration().WithPixelsPerMM(-1), ErrInvalidRatio},
		{"inverted hue", DefaultCalibration().WithStain(30, 10, 50, 50, 200), ErrInvalidCalibration},
		{"hue on 360 scale", DefaultCalibration().WithStain(20, 200, 50, 50, 200), ErrInvalidCalibration},
		{"saturation too high", DefaultCalibration().WithStain(10, 30, 300, 50, 200), ErrInvalidCalibration},
		{"inverted value", DefaultCalibration().WithStain(10, 30, 50, 200, 50), ErrInvalidCalibration},
		{"value above 255", DefaultCalibration().WithStain(10, 30, 50, 50, 256), ErrInvalidCalibration},
		{"grade bands inverted", DefaultCalibration().WithGrades(150, 100), ErrInvalidCalibration},
		{"zero normalization", func() Calibration {
			c := DefaultCalibration()
			c.IODNormalization = 0
			return c
		}(), ErrInvalidCalibration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cal.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGrade_String(t *testing.T) {
	tests := []struct {
		g    Grade
		want string
	}{
		{GradeNegative, "negative"},
		{GradeWeak, "weak_positive"},
		{GradeModerate, "moderate_positive"},
		{GradeStrong, "strong_positive"},
		{Grade(9), "grade(9)"},
	}
	for _, tt := range tests {
		if got := tt.g.String(); got != tt.want {
			t.Errorf("Grade(%d).String(): got %s, want %s", int(tt.g), got, tt.want)
		}
	}
}

func TestMask(t *testing.T) {
	m := NewMask(3, 2)
	if m.Count() != 0 {
		t.Errorf("new mask count: got %d, want 0", m.Count())
	}
	m.Set(0, 0, true)
	m.Set(2, 1, true)
	m.Set(5, 5, true) // ignored
	if m.Count() != 2 {
		t.Errorf("count: got %d, want 2", m.Count())
	}
	if !m.At(2, 1) || m.At(1, 1) || m.At(-1, 0) {
		t.Errorf("At returned unexpected values")
	}
	if FullMask(4, 5).Count() != 20 {
		t.Errorf("full mask count: got %d, want 20", FullMask(4, 5).Count())
	}

	var nilMask *Mask
	nilMask.Set(0, 0, true)
	if nilMask.Count() != 0 || nilMask.At(0, 0) || nilMask.Width() != 0 || nilMask.Height() != 0 {
		t.Errorf("nil mask should be empty")
	}
}

func TestNewCell(t *testing.T) {
	mask := NewMask(4, 4)
	mask.Set(1, 1, true)
	mask.Set(2, 2, true)

	c := NewCell(BoundingBox{X: 1, Y: 2, W: 4, H: 4}, mask)
	if c.AreaPixels != 2 {
		t.Errorf("AreaPixels: got %d, want 2", c.AreaPixels)
	}
	if c.Grade != GradeNegative || c.Label != "" {
		t.Errorf("new cell should be unclassified: %+v", c)
	}

	empty := NewCell(BoundingBox{W: 3, H: 3}, nil)
	if empty.AreaPixels != 0 || empty.Mask == nil {
		t.Errorf("nil mask cell: got %+v", empty)
	}
}
