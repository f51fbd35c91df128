package ihc

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Analysis is the result of running the whole engine on one image.
type Analysis struct {
	// Cells are classified copies of the input cells, in input order.
	Cells []Cell `json:"cells"`

	Area   AreaSummary `json:"area"`
	IOD    float64     `json:"iod"`
	Report Report      `json:"report"`
}

// Analyze classifies cells against img and computes the report.
//
// Parameters:
//   - img: The original color image. Its grayscale derivative is computed here.
//   - cells: Upstream cell records (box, mask, area). They are not modified.
//   - cal: Calibration; validated before any work is done.
//
// Returns:
//   - *Analysis: Classified cells, areas, IOD and the final report.
//   - error: Non-nil when the calibration is invalid, a box leaves the image or a
//     mask does not match its box.
func Analyze(img image.Image, cells []Cell, cal Calibration) (*Analysis, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	classified, err := ClassifyCells(img, cells, cal)
	if err != nil {
		return nil, err
	}

	area, err := Aggregate(classified, cal.PixelsPerMM)
	if err != nil {
		return nil, err
	}

	iod := AccumulateIOD(Grayscale(img), classified)

	return &Analysis{
		Cells:  classified,
		Area:   area,
		IOD:    iod,
		Report: Compute(classified, area, iod, cal.IODNormalization),
	}, nil
}

// ClassifyCells grades every cell against img and returns graded copies.
func ClassifyCells(img image.Image, cells []Cell, cal Calibration) ([]Cell, error) {
	bounds := img.Bounds()
	out := make([]Cell, len(cells))
	for i, c := range cells {
		if err := c.checkMask(); err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		rect := c.Box.Rect()
		if c.Box.W < 0 || c.Box.H < 0 || !rect.In(bounds) {
			return nil, fmt.Errorf("cell %d: %w: box %v, image %v", i, ErrCellOutOfBounds, rect, bounds)
		}
		var cls Classification
		if rect.Empty() {
			cls = Classification{Grade: GradeNegative}
		} else {
			cls = Classify(CellRegion(img, c.Box), c.Mask, cal)
		}
		out[i] = c.withGrade(cls.Grade)
	}
	return out, nil
}

// CellRegion returns the crop of img under box. The crop is anchored at (0,0).
func CellRegion(img image.Image, box BoundingBox) image.Image {
	return imaging.Crop(img, box.Rect())
}
