// Package ihc implements the quantitative metrics engine for immunohistochemistry
// (IHC) images.
//
// The engine consumes cells that were detected and segmented elsewhere and turns
// them into the standard pathology scores. It is split into four stages, each a
// pure function of its inputs:
//
//   - Classify: mean HSV color inside a cell mask -> positivity grade (0-3)
//   - Aggregate: per-cell pixel areas -> tissue and positive areas in px and mm²
//   - AccumulateIOD: grayscale intensities of positive cells -> integrated optical density
//   - Compute: grade counts, areas and IOD -> H-Score, IRS, densities and ratios
//
// Analyze chains the four stages for one image.
//
// # Color Scale
//
// Hue, saturation and value use the 8-bit OpenCV convention:
//   - H: 0-179 (degrees / 2)
//   - S: 0-255
//   - V: 0-255
//
// All stain thresholds in Calibration are expressed on this scale. A threshold
// taken from a 0-360 hue wheel must be halved before use.
//
// # Coordinate System
//
// Bounding boxes are in image pixel coordinates with (0,0) at the top-left corner.
// A cell mask covers exactly its bounding box: mask (0,0) is box (X,Y).
//
// # Thread Safety
//
// Nothing in this package holds state between calls. Calibration is a value type,
// so different calibrations can be used from different goroutines at the same time.
package ihc
