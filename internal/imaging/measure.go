package imaging

import (
	"fmt"
	"math"
)

// Point represents a 2D point
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DistanceResult contains a calibrated measurement between two points
type DistanceResult struct {
	DistancePixels float64 `json:"distance_pixels"`
	DistanceMM     float64 `json:"distance_mm"`
	DistanceMicron float64 `json:"distance_um"`
	DeltaX         int     `json:"delta_x"`
	DeltaY         int     `json:"delta_y"`
	AngleDegrees   float64 `json:"angle_degrees"`
}

// MeasureDistance calculates the distance between two points in pixels and in
// physical units at the given magnification ratio
func MeasureDistance(x1, y1, x2, y2 int, pixelsPerMM float64) (*DistanceResult, error) {
	if pixelsPerMM <= 0 {
		return nil, fmt.Errorf("pixels per mm must be > 0, got %g", pixelsPerMM)
	}

	deltaX := x2 - x1
	deltaY := y2 - y1

	distance := math.Sqrt(float64(deltaX*deltaX + deltaY*deltaY))
	mm := distance / pixelsPerMM

	// Angle in degrees (0 = horizontal right, 90 = down)
	angle := math.Atan2(float64(deltaY), float64(deltaX)) * 180 / math.Pi

	return &DistanceResult{
		DistancePixels: round(distance, 2),
		DistanceMM:     round(mm, 4),
		DistanceMicron: round(mm*1000, 1),
		DeltaX:         deltaX,
		DeltaY:         deltaY,
		AngleDegrees:   round(angle, 1),
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
