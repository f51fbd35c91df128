package ihc

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// createSlide paints cells of the given colors onto a white 40x10 slide, one
// 10x10 box per color, and returns the image plus full-mask cells.
func createSlide(colors ...color.RGBA) (*image.RGBA, []Cell) {
	img := createInMemoryImage(10*len(colors), 10, color.RGBA{255, 255, 255, 255})
	cells := make([]Cell, len(colors))
	for i, c := range colors {
		box := BoundingBox{X: i * 10, Y: 0, W: 10, H: 10}
		for y := 0; y < 10; y++ {
			for x := 0; x < 10; x++ {
				img.Set(box.X+x, y, c)
			}
		}
		cells[i] = NewCell(box, FullMask(10, 10))
	}
	return img, cells
}

func TestAnalyze(t *testing.T) {
	img, cells := createSlide(darkBrown, midBrown, lightBrown, hematoxylin)
	cal := DefaultCalibration().WithPixelsPerMM(10)

	got, err := Analyze(img, cells, cal)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	wantGrades := []Grade{GradeStrong, GradeModerate, GradeWeak, GradeNegative}
	for i, want := range wantGrades {
		if got.Cells[i].Grade != want {
			t.Errorf("cell %d grade: got %v, want %v", i, got.Cells[i].Grade, want)
		}
		if got.Cells[i].Label != want.String() {
			t.Errorf("cell %d label: got %s, want %s", i, got.Cells[i].Label, want.String())
		}
	}

	if got.Area.TissuePixels != 400 || got.Area.PositivePixels != 300 {
		t.Errorf("Area: got %+v, want 400/300 px", got.Area)
	}
	if !almostEqual(got.Area.TissueMM2, 4, 1e-12) {
		t.Errorf("TissueMM2: got %v, want 4", got.Area.TissueMM2)
	}

	// IOD over the three brown cells, 100 pixels each, BT.601 luminance.
	gray := Grayscale(img)
	var want float64
	for _, x := range []int{0, 10, 20} {
		want += 100 * float64(255-int(gray.GrayAt(x, 0).Y))
	}
	if got.IOD != want {
		t.Errorf("IOD: got %v, want %v", got.IOD, want)
	}

	r := got.Report
	if r.TotalCells != 4 || r.PositiveCells != 3 {
		t.Errorf("counts: got total=%d positive=%d", r.TotalCells, r.PositiveCells)
	}
	if r.PositiveRatio != 75 || r.PP != 3 {
		t.Errorf("ratio/PP: got %v/%d, want 75/3", r.PositiveRatio, r.PP)
	}
	// 25% each of weak, moderate, strong
	if r.HScore != 150 {
		t.Errorf("HScore: got %v, want 150", r.HScore)
	}
	// one of each positive grade: strong is not strictly dominant, nor moderate
	if r.SI != 1 || r.IRS != 3 {
		t.Errorf("SI/IRS: got %d/%d, want 1/3", r.SI, r.IRS)
	}
	if r.PositiveDensity != 1 {
		t.Errorf("PositiveDensity: got %v, want 1 (3 cells / 4 mm² rounded)", r.PositiveDensity)
	}
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	img, cells := createSlide(darkBrown)
	before := cells[0]

	if _, err := Analyze(img, cells, DefaultCalibration()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if cells[0].Grade != before.Grade || cells[0].Label != before.Label {
		t.Errorf("input cell mutated: got %+v", cells[0])
	}
}

func TestAnalyze_InvalidCalibration(t *testing.T) {
	img, cells := createSlide(darkBrown)

	_, err := Analyze(img, cells, DefaultCalibration().WithPixelsPerMM(0))
	if !errors.Is(err, ErrInvalidRatio) {
		t.Errorf("got err %v, want ErrInvalidRatio", err)
	}
}

func TestAnalyze_CellErrors(t *testing.T) {
	img, _ := createSlide(darkBrown)

	tests := []struct {
		name string
		cell Cell
		want error
	}{
		{"box outside image", NewCell(BoundingBox{X: 5, Y: 5, W: 10, H: 10}, FullMask(10, 10)), ErrCellOutOfBounds},
		{"negative origin", NewCell(BoundingBox{X: -1, Y: 0, W: 2, H: 2}, FullMask(2, 2)), ErrCellOutOfBounds},
		{"mask too small", NewCell(BoundingBox{X: 0, Y: 0, W: 4, H: 4}, FullMask(3, 4)), ErrMaskSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(img, []Cell{tt.cell}, DefaultCalibration())
			if !errors.Is(err, tt.want) {
				t.Errorf("got err %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAnalyze_EmptyMaskCell(t *testing.T) {
	img, _ := createSlide(darkBrown)
	cell := NewCell(BoundingBox{W: 10, H: 10}, NewMask(10, 10))

	got, err := Analyze(img, []Cell{cell}, DefaultCalibration())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got.Cells[0].Grade != GradeNegative {
		t.Errorf("grade: got %v, want negative", got.Cells[0].Grade)
	}
	if got.IOD != 0 {
		t.Errorf("IOD: got %v, want 0", got.IOD)
	}
}

func TestAnalyze_NoCells(t *testing.T) {
	img, _ := createSlide(darkBrown)

	got, err := Analyze(img, nil, DefaultCalibration())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got.Report.TotalCells != 0 || got.Report.IRS != 0 {
		t.Errorf("report: got %+v, want zero", got.Report)
	}
}

func TestCellRegion(t *testing.T) {
	img, _ := createSlide(hematoxylin, darkBrown)

	region := CellRegion(img, BoundingBox{X: 10, Y: 0, W: 10, H: 10})
	if region.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Fatalf("bounds: got %v", region.Bounds())
	}
	r, g, b, _ := region.At(0, 0).RGBA()
	if uint8(r>>8) != darkBrown.R || uint8(g>>8) != darkBrown.G || uint8(b>>8) != darkBrown.B {
		t.Errorf("pixel: got (%d,%d,%d), want %v", r>>8, g>>8, b>>8, darkBrown)
	}
}
