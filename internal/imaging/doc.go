// Package imaging provides the image plumbing around the IHC metrics engine.
//
// It loads and caches slide images, crops cells for inspection, samples stain
// colors for calibration and converts pixel measurements into physical units.
// The metrics themselves live in package ihc.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual operations are
// stateless and can be called concurrently on different images.
//
// # Color Representation
//
// Stain samples report HSV on the 8-bit OpenCV scale used by ihc.Calibration:
//   - H: 0-179
//   - S: 0-255
//   - V: 0-255
//
// # Physical Units
//
// Conversions to millimeters take the scan's pixels-per-millimeter ratio, the
// same value as ihc.Calibration.PixelsPerMM. It must be > 0.
package imaging
