package ihc

import "errors"

var (
	// ErrInvalidCalibration is returned when a Calibration fails validation.
	ErrInvalidCalibration = errors.New("invalid calibration")

	// ErrInvalidRatio is returned when the pixels-per-millimeter ratio is not positive.
	ErrInvalidRatio = errors.New("pixel to mm ratio must be > 0")

	// ErrCellOutOfBounds is returned when a cell's bounding box leaves the image.
	ErrCellOutOfBounds = errors.New("cell bounding box outside image bounds")

	// ErrMaskSize is returned when a mask does not match its bounding box.
	ErrMaskSize = errors.New("mask size does not match bounding box")
)
