package ihc

// AreaSummary holds tissue and positive-cell areas.
//
// Millimeter areas are derived: mm² = pixels / PixelsPerMM².
type AreaSummary struct {
	TissuePixels   int     `json:"tissue_area_pixels"`
	TissueMM2      float64 `json:"tissue_area_mm2"`
	PositivePixels int     `json:"positive_area_pixels"`
	PositiveMM2    float64 `json:"positive_area_mm2"`
}

// Aggregate sums cell areas and converts them to square millimeters.
//
// Every cell contributes to the tissue area; only cells with a positive grade
// contribute to the positive area. pixelsPerMM is the calibration ratio at the
// scan's magnification; a non-positive ratio returns an error wrapping
// ErrInvalidRatio.
func Aggregate(cells []Cell, pixelsPerMM float64) (AreaSummary, error) {
	if err := validateRatio(pixelsPerMM); err != nil {
		return AreaSummary{}, err
	}

	var total, positive int
	for _, c := range cells {
		total += c.AreaPixels
		if c.Grade.Positive() {
			positive += c.AreaPixels
		}
	}
	return NewAreaSummary(total, positive, pixelsPerMM)
}

// NewAreaSummary builds a summary from pixel totals.
func NewAreaSummary(tissuePixels, positivePixels int, pixelsPerMM float64) (AreaSummary, error) {
	if err := validateRatio(pixelsPerMM); err != nil {
		return AreaSummary{}, err
	}
	scale := pixelsPerMM * pixelsPerMM
	return AreaSummary{
		TissuePixels:   tissuePixels,
		TissueMM2:      float64(tissuePixels) / scale,
		PositivePixels: positivePixels,
		PositiveMM2:    float64(positivePixels) / scale,
	}, nil
}
