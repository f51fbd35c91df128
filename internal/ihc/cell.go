package ihc

import (
	"fmt"
	"image"
)

// Grade is the ordinal positivity category of a cell.
type Grade int

// Positivity grades, ordered by staining intensity.
const (
	GradeNegative Grade = iota
	GradeWeak
	GradeModerate
	GradeStrong
)

// String returns the grade label used in reports.
func (g Grade) String() string {
	switch g {
	case GradeNegative:
		return "negative"
	case GradeWeak:
		return "weak_positive"
	case GradeModerate:
		return "moderate_positive"
	case GradeStrong:
		return "strong_positive"
	default:
		return fmt.Sprintf("grade(%d)", int(g))
	}
}

// Positive reports whether the grade counts as stain-positive.
func (g Grade) Positive() bool {
	return g > GradeNegative
}

// BoundingBox is a cell's rectangle in image pixel coordinates.
type BoundingBox struct {
	X int `json:"x" yaml:"x"` // Left edge (inclusive)
	Y int `json:"y" yaml:"y"` // Top edge (inclusive)
	W int `json:"w" yaml:"w"` // Width in pixels
	H int `json:"h" yaml:"h"` // Height in pixels
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Mask is a binary segmentation mask covering a cell's bounding box.
//
// The zero value is an empty 0x0 mask.
type Mask struct {
	width, height int
	bits          []bool
}

// NewMask returns a width x height mask with every pixel unset.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{width: width, height: height, bits: make([]bool, width*height)}
}

// FullMask returns a width x height mask with every pixel set.
func FullMask(width, height int) *Mask {
	m := NewMask(width, height)
	for i := range m.bits {
		m.bits[i] = true
	}
	return m
}

// Width returns the mask width.
func (m *Mask) Width() int {
	if m == nil {
		return 0
	}
	return m.width
}

// Height returns the mask height.
func (m *Mask) Height() int {
	if m == nil {
		return 0
	}
	return m.height
}

// Set marks or clears the pixel at (x, y). Out-of-range coordinates and a nil
// mask are ignored.
func (m *Mask) Set(x, y int, on bool) {
	if m == nil || x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.bits[y*m.width+x] = on
}

// At reports whether (x, y) is inside the cell. Out-of-range coordinates are false.
func (m *Mask) At(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.bits[y*m.width+x]
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Cell is one detected and segmented cell.
//
// Grade and Label are zero until the cell has been classified. Cells are treated
// as immutable: Analyze returns classified copies.
type Cell struct {
	Box        BoundingBox `json:"box"`
	Mask       *Mask       `json:"-"`
	AreaPixels int         `json:"area_pixels"`
	Grade      Grade       `json:"grade"`
	Label      string      `json:"label"`
}

// NewCell builds an unclassified cell whose area is the mask's pixel count.
// A nil mask is replaced by an empty one.
func NewCell(box BoundingBox, mask *Mask) Cell {
	if mask == nil {
		mask = NewMask(box.W, box.H)
	}
	return Cell{Box: box, Mask: mask, AreaPixels: mask.Count()}
}

// withGrade returns a copy of c carrying the classification result.
func (c Cell) withGrade(g Grade) Cell {
	c.Grade = g
	c.Label = g.String()
	return c
}

// checkMask verifies that the mask matches the bounding box.
func (c Cell) checkMask() error {
	if c.Mask == nil {
		return nil
	}
	if c.Mask.Width() != c.Box.W || c.Mask.Height() != c.Box.H {
		return fmt.Errorf("%w: mask %dx%d, box %dx%d",
			ErrMaskSize, c.Mask.Width(), c.Mask.Height(), c.Box.W, c.Box.H)
	}
	return nil
}
