package ihc

import "math"

// GradeCounts tallies cells per positivity grade.
type GradeCounts struct {
	Negative int `json:"negative"`
	Weak     int `json:"weak"`
	Moderate int `json:"moderate"`
	Strong   int `json:"strong"`
}

// Positive returns weak + moderate + strong.
func (g GradeCounts) Positive() int {
	return g.Weak + g.Moderate + g.Strong
}

// Total returns every counted cell, negatives included.
func (g GradeCounts) Total() int {
	return g.Negative + g.Positive()
}

// CountGrades tallies cells by grade. Grades outside 0-3 are counted as negative.
func CountGrades(cells []Cell) GradeCounts {
	var g GradeCounts
	for _, c := range cells {
		switch c.Grade {
		case GradeWeak:
			g.Weak++
		case GradeModerate:
			g.Moderate++
		case GradeStrong:
			g.Strong++
		default:
			g.Negative++
		}
	}
	return g
}

// Report is the full set of quantitative metrics for one image.
//
// Floating point fields are rounded for presentation (see Compute); counts and
// the SI, PP and IRS scores are exact integers.
type Report struct {
	TotalCells    int `json:"total_cells"`
	NegativeCells int `json:"negative_cells"`
	WeakCells     int `json:"weak_positive_cells"`
	ModerateCells int `json:"moderate_positive_cells"`
	StrongCells   int `json:"strong_positive_cells"`
	PositiveCells int `json:"positive_cells"`

	Area AreaSummary `json:"area"`

	PositiveRatio   float64 `json:"positive_ratio"` // %
	WeakPercent     float64 `json:"weak_percent"`
	ModeratePercent float64 `json:"moderate_percent"`
	StrongPercent   float64 `json:"strong_percent"`

	PositiveDensity float64 `json:"positive_density"` // positive cells / mm²
	HScore          float64 `json:"h_score"`          // 0-300
	SI              int     `json:"si"`               // 0-3
	PP              int     `json:"pp"`               // 0-4
	IRS             int     `json:"irs"`              // 0-12
	MeanDensity     float64 `json:"mean_density"`
	IOD             float64 `json:"iod"`
}

// Compute derives the report from classified cells.
//
// Parameters:
//   - cells: Classified cells. Cells are only counted, never modified.
//   - area: Output of Aggregate for the same cells.
//   - totalIOD: Output of AccumulateIOD for the same cells.
//   - normalization: Display scale for the mean density. Values <= 0 select
//     DefaultIODNormalization.
//
// See ComputeCounts for the formulas.
func Compute(cells []Cell, area AreaSummary, totalIOD, normalization float64) Report {
	return ComputeCounts(CountGrades(cells), area, totalIOD, normalization)
}

// ComputeCounts derives the report from grade counts.
//
// # Formulas
//
//	positive_ratio = positive / total * 100
//	grade%         = grade / total * 100
//	H-Score        = weak% * 1 + moderate% * 2 + strong% * 3      (0-300)
//	SI             = DominantIntensity(counts)                    (0-3)
//	PP             = ProportionScore(positive_ratio)              (0-4)
//	IRS            = SI * PP                                      (0-12)
//	density        = positive / tissue_mm²
//	mean_density   = IOD / positive_pixels / normalization
//
// Every ratio whose denominator is zero is defined as 0.
//
// # Rounding
//
// Rounding happens once, on output: areas in mm² to 4 decimals, percentages and
// H-Score to 2, positive density and IOD to whole numbers, mean density to 4.
func ComputeCounts(counts GradeCounts, area AreaSummary, totalIOD, normalization float64) Report {
	if normalization <= 0 {
		normalization = DefaultIODNormalization
	}

	total := counts.Total()
	positive := counts.Positive()

	positiveRatio := percent(positive, total)
	weakPct := percent(counts.Weak, total)
	moderatePct := percent(counts.Moderate, total)
	strongPct := percent(counts.Strong, total)

	hScore := weakPct*1 + moderatePct*2 + strongPct*3

	si := DominantIntensity(counts)
	pp := ProportionScore(positiveRatio)

	var density float64
	if area.TissueMM2 > 0 {
		density = float64(positive) / area.TissueMM2
	}

	var meanDensity float64
	if area.PositivePixels > 0 {
		meanDensity = totalIOD / float64(area.PositivePixels) / normalization
	}

	return Report{
		TotalCells:    total,
		NegativeCells: counts.Negative,
		WeakCells:     counts.Weak,
		ModerateCells: counts.Moderate,
		StrongCells:   counts.Strong,
		PositiveCells: positive,

		Area: AreaSummary{
			TissuePixels:   area.TissuePixels,
			TissueMM2:      round(area.TissueMM2, 4),
			PositivePixels: area.PositivePixels,
			PositiveMM2:    round(area.PositiveMM2, 4),
		},

		PositiveRatio:   round(positiveRatio, 2),
		WeakPercent:     round(weakPct, 2),
		ModeratePercent: round(moderatePct, 2),
		StrongPercent:   round(strongPct, 2),

		PositiveDensity: round(density, 0),
		HScore:          round(hScore, 2),
		SI:              si,
		PP:              pp,
		IRS:             si * pp,
		MeanDensity:     round(meanDensity, 4),
		IOD:             round(totalIOD, 0),
	}
}

// DominantIntensity returns the staining intensity score SI (0-3).
//
// Strong wins only when it is strictly greater than both moderate and weak.
// Otherwise moderate wins when strictly greater than weak, then weak wins when
// present. A strong count equal to the moderate count therefore falls through
// to the moderate branch; this tie-break is kept as is for compatibility with
// existing reports.
func DominantIntensity(g GradeCounts) int {
	switch {
	case g.Strong > g.Moderate && g.Strong > g.Weak:
		return 3
	case g.Moderate > g.Weak:
		return 2
	case g.Weak > 0:
		return 1
	default:
		return 0
	}
}

// ProportionScore returns the proportion score PP (0-4) for a positive ratio in
// percent. Bands are strict: exactly 75% scores 3, not 4.
func ProportionScore(positiveRatio float64) int {
	switch {
	case positiveRatio > 75:
		return 4
	case positiveRatio > 50:
		return 3
	case positiveRatio > 25:
		return 2
	case positiveRatio > 5:
		return 1
	default:
		return 0
	}
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// round rounds v to the given number of decimal places.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
