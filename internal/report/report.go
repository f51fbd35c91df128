// Package report renders ihc.Report values for people and downstream systems.
//
// Three renderings are provided:
//   - Text: "Key = value" lines, one metric per line, readable by ParseText
//   - TissueAnalysis: the report split into raw measurements and derived scores
//   - Table: a styled terminal table with one row per image
package report

import (
	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// TissueAnalysis groups a report the way reporting systems store it: raw
// measurements next to the scores derived from them.
//
// Fields are pointers so that a partially parsed text report can tell a missing
// value from a zero.
type TissueAnalysis struct {
	Raw     Raw            `json:"raw"`
	Derived Derived        `json:"derived"`
	Images  Images         `json:"images"`
	Meta    map[string]any `json:"metadata,omitempty"`
}

// Raw holds counts, areas and optical density measured on the image.
type Raw struct {
	WeakCells         *int     `json:"pos_cells_1_weak"`
	ModerateCells     *int     `json:"pos_cells_2_moderate"`
	StrongCells       *int     `json:"pos_cells_3_strong"`
	NegativeCells     *int     `json:"neg_cells,omitempty"`
	TotalCells        *int     `json:"iod_total_cells"`
	PositiveAreaMM2   *float64 `json:"positive_area_mm2"`
	TissueAreaMM2     *float64 `json:"tissue_area_mm2"`
	PositiveAreaPx    *int     `json:"positive_area_px"`
	TissueAreaPx      *int     `json:"tissue_area_px"`
	PositiveIntensity *float64 `json:"positive_intensity"`
	IOD               *float64 `json:"iod_value"`
}

// Derived holds the scores computed from Raw.
type Derived struct {
	PositiveRatio   *float64 `json:"positive_cells_ratio"`
	PositiveDensity *float64 `json:"positive_cells_density"`
	MeanDensity     *float64 `json:"mean_density"`
	HScore          *float64 `json:"h_score"`
	IRS             *int     `json:"irs"`
	SI              *int     `json:"si,omitempty"`
	PP              *int     `json:"pp,omitempty"`
}

// Images points at the slide and any rendered overlay.
type Images struct {
	RawImagePath    *string `json:"raw_image_path"`
	ParsedImagePath *string `json:"parsed_image_path"`
}

// FromReport builds the grouped view of rep. imagePath may be empty.
func FromReport(rep ihc.Report, imagePath string) TissueAnalysis {
	ta := TissueAnalysis{
		Raw: Raw{
			WeakCells:         ptr(rep.WeakCells),
			ModerateCells:     ptr(rep.ModerateCells),
			StrongCells:       ptr(rep.StrongCells),
			NegativeCells:     ptr(rep.NegativeCells),
			TotalCells:        ptr(rep.TotalCells),
			PositiveAreaMM2:   ptr(rep.Area.PositiveMM2),
			TissueAreaMM2:     ptr(rep.Area.TissueMM2),
			PositiveAreaPx:    ptr(rep.Area.PositivePixels),
			TissueAreaPx:      ptr(rep.Area.TissuePixels),
			PositiveIntensity: ptr(PositiveIntensity(rep)),
			IOD:               ptr(rep.IOD),
		},
		Derived: Derived{
			PositiveRatio:   ptr(rep.PositiveRatio),
			PositiveDensity: ptr(rep.PositiveDensity),
			MeanDensity:     ptr(rep.MeanDensity),
			HScore:          ptr(rep.HScore),
			IRS:             ptr(rep.IRS),
			SI:              ptr(rep.SI),
			PP:              ptr(rep.PP),
		},
	}
	if imagePath != "" {
		ta.Images.RawImagePath = ptr(imagePath)
	}
	return ta
}

// PositiveIntensity is the mean optical density per positive pixel before
// display normalization, rounded to 2 decimals. It is 0 without positive area.
func PositiveIntensity(rep ihc.Report) float64 {
	if rep.Area.PositivePixels == 0 {
		return 0
	}
	return round2(rep.IOD / float64(rep.Area.PositivePixels))
}

func ptr[T any](v T) *T {
	return &v
}
