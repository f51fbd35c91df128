// Package manifest reads upstream cell-record files.
//
// A manifest names one slide image and lists the cells a detection and
// segmentation model found on it. The format is YAML; JSON documents are valid
// YAML and load unchanged.
//
//	image: slide-001.png
//	pixels_per_mm: 350
//	cells:
//	  - box: {x: 120, y: 40, w: 4, h: 3}
//	    mask: ["0110", "1111", "0110"]
//	  - box: {x: 300, y: 88, w: 6, h: 2}
//	    mask_rle: [1, 4, 2, 4, 1]
//	  - box: {x: 512, y: 200, w: 10, h: 10}
//
// A cell without a mask covers its whole box. mask_rle lists run lengths over
// the box in row-major order, alternating unset and set pixels and starting with
// unset. area_pixels overrides the mask's pixel count when the upstream model
// reports its own area.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// ErrInvalidManifest is returned when a manifest is malformed.
var ErrInvalidManifest = errors.New("invalid manifest")

// MaxCellPixels caps the box area of one cell. Larger boxes are rejected before
// a mask is allocated for them.
const MaxCellPixels = 4096 * 4096

// Manifest is one slide and its detected cells.
type Manifest struct {
	// Image is the slide path. Relative paths are resolved against the
	// manifest's directory by Load.
	Image string `yaml:"image" json:"image"`

	// PixelsPerMM overrides the configured ratio when > 0.
	PixelsPerMM float64 `yaml:"pixels_per_mm,omitempty" json:"pixels_per_mm,omitempty"`

	Cells []CellSpec `yaml:"cells" json:"cells"`

	// Path is the file the manifest was loaded from, if any.
	Path string `yaml:"-" json:"-"`
}

// CellSpec is the serialized form of one cell.
type CellSpec struct {
	Box        ihc.BoundingBox `yaml:"box" json:"box"`
	Mask       []string        `yaml:"mask,omitempty" json:"mask,omitempty"`
	MaskRLE    []int           `yaml:"mask_rle,omitempty" json:"mask_rle,omitempty"`
	AreaPixels *int            `yaml:"area_pixels,omitempty" json:"area_pixels,omitempty"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Path = path
	if m.Image != "" && !filepath.IsAbs(m.Image) {
		m.Image = filepath.Join(filepath.Dir(path), m.Image)
	}
	return m, nil
}

// Parse decodes a manifest document. Unknown fields are rejected so that a
// misspelled key does not silently drop a mask.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.Image == "" {
		return nil, fmt.Errorf("%w: missing image", ErrInvalidManifest)
	}
	if m.PixelsPerMM < 0 {
		return nil, fmt.Errorf("%w: pixels_per_mm must be > 0, got %g", ErrInvalidManifest, m.PixelsPerMM)
	}
	return &m, nil
}

// CellsWithin converts every CellSpec into an unclassified ihc.Cell after
// checking that each box lies inside bounds, normally the slide's image bounds.
func (m *Manifest) CellsWithin(bounds image.Rectangle) ([]ihc.Cell, error) {
	return ToCellsWithin(m.Cells, bounds)
}

// Calibration returns cal with the manifest's ratio applied, if it sets one.
func (m *Manifest) Calibration(cal ihc.Calibration) ihc.Calibration {
	if m.PixelsPerMM > 0 {
		return cal.WithPixelsPerMM(m.PixelsPerMM)
	}
	return cal
}

// ToCells converts cell specs into unclassified cells, reporting the index of the
// first bad spec.
func ToCells(specs []CellSpec) ([]ihc.Cell, error) {
	cells := make([]ihc.Cell, len(specs))
	for i, s := range specs {
		c, err := s.Cell()
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		cells[i] = c
	}
	return cells, nil
}

// ToCellsWithin is ToCells with every box checked against bounds first, so
// that no mask is decoded for a box the image cannot hold.
func ToCellsWithin(specs []CellSpec, bounds image.Rectangle) ([]ihc.Cell, error) {
	for i, s := range specs {
		if err := CheckBox(s.Box, bounds); err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
	}
	return ToCells(specs)
}

// CheckBox verifies that box has a sane size and lies inside bounds. Boxes
// outside bounds wrap ihc.ErrCellOutOfBounds.
func CheckBox(box ihc.BoundingBox, bounds image.Rectangle) error {
	if err := checkBoxSize(box.W, box.H); err != nil {
		return err
	}
	if box.X < bounds.Min.X || box.Y < bounds.Min.Y ||
		box.W > bounds.Max.X-box.X || box.H > bounds.Max.Y-box.Y {
		return fmt.Errorf("%w: box at (%d,%d) size %dx%d, image %v",
			ihc.ErrCellOutOfBounds, box.X, box.Y, box.W, box.H, bounds)
	}
	return nil
}

func checkBoxSize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: negative box size %dx%d", ErrInvalidManifest, width, height)
	}
	if width > 0 && height > MaxCellPixels/width {
		return fmt.Errorf("%w: box %dx%d exceeds %d pixels", ErrInvalidManifest, width, height, MaxCellPixels)
	}
	return nil
}

// Cell decodes the mask and builds the cell.
func (s CellSpec) Cell() (ihc.Cell, error) {
	if err := checkBoxSize(s.Box.W, s.Box.H); err != nil {
		return ihc.Cell{}, err
	}

	var (
		mask *ihc.Mask
		err  error
	)
	switch {
	case len(s.Mask) > 0 && len(s.MaskRLE) > 0:
		return ihc.Cell{}, fmt.Errorf("%w: mask and mask_rle are mutually exclusive", ErrInvalidManifest)
	case len(s.Mask) > 0:
		mask, err = DecodeRows(s.Mask, s.Box.W, s.Box.H)
	case len(s.MaskRLE) > 0:
		mask, err = DecodeRLE(s.MaskRLE, s.Box.W, s.Box.H)
	default:
		mask = ihc.FullMask(s.Box.W, s.Box.H)
	}
	if err != nil {
		return ihc.Cell{}, err
	}

	c := ihc.NewCell(s.Box, mask)
	if s.AreaPixels != nil {
		if *s.AreaPixels < 0 {
			return ihc.Cell{}, fmt.Errorf("%w: negative area_pixels %d", ErrInvalidManifest, *s.AreaPixels)
		}
		c.AreaPixels = *s.AreaPixels
	}
	return c, nil
}
