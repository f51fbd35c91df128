package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
	"github.com/ironsheep/ihc-metrics-mcp/internal/imaging"
	"github.com/ironsheep/ihc-metrics-mcp/internal/manifest"
	"github.com/ironsheep/ihc-metrics-mcp/internal/report"
)

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies calibration overrides on top of the server calibration
//  3. Loads images from cache as needed
//  4. Calls the engine or imaging function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch name {
	case ToolAnalyze:
		return s.handleAnalyze(args)
	case ToolClassifyCell:
		return s.handleClassifyCell(args)
	case ToolComputeMetrics:
		return s.handleComputeMetrics(args)
	case ToolSampleStain:
		return s.handleSampleStain(args)
	case ToolMeasure:
		return s.handleMeasure(args)
	case ToolCalibration:
		return s.handleCalibration()
	case ToolCropCell:
		return s.handleCropCell(args)
	case ToolSlideInfo:
		return s.handleSlideInfo(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// calibrationArgs are optional overrides shared by every tool that grades or
// measures. Unset fields keep the server's value.
type calibrationArgs struct {
	PixelsPerMM      *float64   `json:"pixels_per_mm"`
	Stain            *stainArgs `json:"stain"`
	Grades           *gradeArgs `json:"grades"`
	IODNormalization *float64   `json:"iod_normalization"`
}

type stainArgs struct {
	HueMin *float64 `json:"hue_min"`
	HueMax *float64 `json:"hue_max"`
	SatMin *float64 `json:"sat_min"`
	ValMin *float64 `json:"val_min"`
	ValMax *float64 `json:"val_max"`
}

type gradeArgs struct {
	StrongBelow   *float64 `json:"strong_below"`
	ModerateBelow *float64 `json:"moderate_below"`
}

// apply returns base with the overrides applied, validated.
func (c calibrationArgs) apply(base ihc.Calibration) (ihc.Calibration, error) {
	cal := base
	if c.PixelsPerMM != nil {
		cal = cal.WithPixelsPerMM(*c.PixelsPerMM)
	}
	if st := c.Stain; st != nil {
		setIf(&cal.Stain.HueMin, st.HueMin)
		setIf(&cal.Stain.HueMax, st.HueMax)
		setIf(&cal.Stain.SatMin, st.SatMin)
		setIf(&cal.Stain.ValMin, st.ValMin)
		setIf(&cal.Stain.ValMax, st.ValMax)
	}
	if g := c.Grades; g != nil {
		setIf(&cal.Grades.StrongBelow, g.StrongBelow)
		setIf(&cal.Grades.ModerateBelow, g.ModerateBelow)
	}
	setIf(&cal.IODNormalization, c.IODNormalization)

	if err := cal.Validate(); err != nil {
		return ihc.Calibration{}, err
	}
	return cal, nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func decode(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Analysis Handlers ===

type analyzeArgs struct {
	calibrationArgs
	Image        string              `json:"image"`
	Manifest     string              `json:"manifest"`
	Cells        []manifest.CellSpec `json:"cells"`
	Format       string              `json:"format"`
	IncludeCells bool                `json:"include_cells"`
}

type analyzeResult struct {
	Image       string          `json:"image"`
	Calibration ihc.Calibration `json:"calibration"`
	Report      ihc.Report      `json:"report"`
	Cells       []ihc.Cell      `json:"cells,omitempty"`
}

func (s *Server) handleAnalyze(args json.RawMessage) (any, error) {
	var a analyzeArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}

	base := s.cal
	specs := a.Cells
	image := a.Image
	if a.Manifest != "" {
		m, err := manifest.Load(a.Manifest)
		if err != nil {
			return nil, err
		}
		if image == "" {
			image = m.Image
		}
		base = m.Calibration(base)
		specs = m.Cells
	}
	if image == "" {
		return nil, errors.New("image is required when no manifest is given")
	}

	cal, err := a.apply(base)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(image)
	if err != nil {
		return nil, err
	}
	cells, err := manifest.ToCellsWithin(specs, img.Bounds())
	if err != nil {
		return nil, err
	}

	analysis, err := ihc.Analyze(img, cells, cal)
	if err != nil {
		return nil, err
	}
	s.logger.Info("slide analyzed",
		"image", image,
		"cells", analysis.Report.TotalCells,
		"h_score", analysis.Report.HScore,
		"irs", analysis.Report.IRS)

	switch a.Format {
	case "", "json":
		res := analyzeResult{Image: image, Calibration: cal, Report: analysis.Report}
		if a.IncludeCells {
			res.Cells = analysis.Cells
		}
		return res, nil
	case "text":
		var buf bytes.Buffer
		if err := report.WriteText(&buf, analysis.Report); err != nil {
			return nil, err
		}
		return buf.String(), nil
	case "tissue":
		return report.FromReport(analysis.Report, image), nil
	default:
		return nil, fmt.Errorf("unknown format: %s", a.Format)
	}
}

type classifyCellArgs struct {
	calibrationArgs
	Image   string          `json:"image"`
	Box     ihc.BoundingBox `json:"box"`
	Mask    []string        `json:"mask"`
	MaskRLE []int           `json:"mask_rle"`
}

type classifyCellResult struct {
	ihc.Classification
	AreaPixels int `json:"area_pixels"`
}

func (s *Server) handleClassifyCell(args json.RawMessage) (any, error) {
	var a classifyCellArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	cal, err := a.apply(s.cal)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Image)
	if err != nil {
		return nil, err
	}
	if err := manifest.CheckBox(a.Box, img.Bounds()); err != nil {
		return nil, err
	}
	cell, err := manifest.CellSpec{Box: a.Box, Mask: a.Mask, MaskRLE: a.MaskRLE}.Cell()
	if err != nil {
		return nil, err
	}
	cls := ihc.Classify(ihc.CellRegion(img, cell.Box), cell.Mask, cal)
	return classifyCellResult{Classification: cls, AreaPixels: cell.AreaPixels}, nil
}

type computeMetricsArgs struct {
	calibrationArgs
	Negative           int      `json:"negative"`
	Weak               int      `json:"weak"`
	Moderate           int      `json:"moderate"`
	Strong             int      `json:"strong"`
	TissueAreaPixels   int      `json:"tissue_area_pixels"`
	PositiveAreaPixels int      `json:"positive_area_pixels"`
	TissueAreaMM2      *float64 `json:"tissue_area_mm2"`
	PositiveAreaMM2    *float64 `json:"positive_area_mm2"`
	IOD                float64  `json:"iod"`
}

func (s *Server) handleComputeMetrics(args json.RawMessage) (any, error) {
	var a computeMetricsArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Negative < 0 || a.Weak < 0 || a.Moderate < 0 || a.Strong < 0 {
		return nil, errors.New("cell counts must be >= 0")
	}
	if a.TissueAreaPixels < 0 || a.PositiveAreaPixels < 0 || a.IOD < 0 {
		return nil, errors.New("areas and IOD must be >= 0")
	}
	cal, err := a.apply(s.cal)
	if err != nil {
		return nil, err
	}

	area, err := ihc.NewAreaSummary(a.TissueAreaPixels, a.PositiveAreaPixels, cal.PixelsPerMM)
	if err != nil {
		return nil, err
	}
	setIf(&area.TissueMM2, a.TissueAreaMM2)
	setIf(&area.PositiveMM2, a.PositiveAreaMM2)

	counts := ihc.GradeCounts{Negative: a.Negative, Weak: a.Weak, Moderate: a.Moderate, Strong: a.Strong}
	return ihc.ComputeCounts(counts, area, a.IOD, cal.IODNormalization), nil
}

// === Calibration Handlers ===

type sampleStainArgs struct {
	calibrationArgs
	Image string `json:"image"`
	imaging.Region
}

func (s *Server) handleSampleStain(args json.RawMessage) (any, error) {
	var a sampleStainArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	cal, err := a.apply(s.cal)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Image)
	if err != nil {
		return nil, err
	}
	return imaging.SampleStain(img, a.Region, cal)
}

type measureArgs struct {
	X1          int      `json:"x1"`
	Y1          int      `json:"y1"`
	X2          int      `json:"x2"`
	Y2          int      `json:"y2"`
	PixelsPerMM *float64 `json:"pixels_per_mm"`
}

func (s *Server) handleMeasure(args json.RawMessage) (any, error) {
	var a measureArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	ratio := s.cal.PixelsPerMM
	setIf(&ratio, a.PixelsPerMM)
	return imaging.MeasureDistance(a.X1, a.Y1, a.X2, a.Y2, ratio)
}

type calibrationResult struct {
	Active   ihc.Calibration `json:"active"`
	Defaults ihc.Calibration `json:"defaults"`
	HueScale string          `json:"hue_scale"`
}

func (s *Server) handleCalibration() (any, error) {
	return calibrationResult{
		Active:   s.cal,
		Defaults: ihc.DefaultCalibration(),
		HueScale: "H 0-179, S 0-255, V 0-255",
	}, nil
}

// === Inspection Handlers ===

type cropCellArgs struct {
	Image   string          `json:"image"`
	Box     ihc.BoundingBox `json:"box"`
	Mask    []string        `json:"mask"`
	MaskRLE []int           `json:"mask_rle"`
	Scale   float64         `json:"scale"`
}

func (s *Server) handleCropCell(args json.RawMessage) (any, error) {
	var a cropCellArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	img, err := s.cache.Load(a.Image)
	if err != nil {
		return nil, err
	}
	if err := manifest.CheckBox(a.Box, img.Bounds()); err != nil {
		return nil, err
	}

	var mask *ihc.Mask
	if len(a.Mask) > 0 || len(a.MaskRLE) > 0 {
		cell, err := manifest.CellSpec{Box: a.Box, Mask: a.Mask, MaskRLE: a.MaskRLE}.Cell()
		if err != nil {
			return nil, err
		}
		mask = cell.Mask
	}
	return imaging.CropCell(img, a.Box, mask, a.Scale)
}

type slideInfoArgs struct {
	Image       string   `json:"image"`
	PixelsPerMM *float64 `json:"pixels_per_mm"`
}

func (s *Server) handleSlideInfo(args json.RawMessage) (any, error) {
	var a slideInfoArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	ratio := s.cal.PixelsPerMM
	setIf(&ratio, a.PixelsPerMM)
	return imaging.LoadSlideInfo(s.cache, a.Image, ratio)
}
