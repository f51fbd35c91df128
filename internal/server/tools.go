package server

import "github.com/modelcontextprotocol/go-sdk/mcp"

// Tool names.
const (
	ToolAnalyze        = "ihc_analyze"
	ToolClassifyCell   = "ihc_classify_cell"
	ToolComputeMetrics = "ihc_compute_metrics"
	ToolSampleStain    = "ihc_sample_stain"
	ToolMeasure        = "ihc_measure"
	ToolCropCell       = "ihc_crop_cell"
	ToolSlideInfo      = "ihc_slide_info"
	ToolCalibration    = "ihc_calibration"
)

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

// merge returns the union of property maps; later maps win.
func merge(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

var imageProperty = map[string]any{
	"image": map[string]any{
		"type":        "string",
		"description": "Absolute path to the slide image (PNG, JPEG, GIF or TIFF)",
	},
}

var boxSchema = map[string]any{
	"type":        "object",
	"description": "Cell bounding box in image pixels; (x, y) is the top-left corner",
	"properties": map[string]any{
		"x": map[string]any{"type": "integer"},
		"y": map[string]any{"type": "integer"},
		"w": map[string]any{"type": "integer", "minimum": 0},
		"h": map[string]any{"type": "integer", "minimum": 0},
	},
	"required": []string{"x", "y", "w", "h"},
}

var maskProperties = map[string]any{
	"mask": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Mask rows over the box, '1' for cell pixels and '0' for background. Omit for a full box.",
	},
	"mask_rle": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "integer", "minimum": 0},
		"description": "Row-major run lengths over the box, alternating background and cell, starting with background",
	},
}

var cellSchema = map[string]any{
	"type": "object",
	"properties": merge(map[string]any{
		"box": boxSchema,
		"area_pixels": map[string]any{
			"type":        "integer",
			"description": "Optional area override; defaults to the mask pixel count",
		},
	}, maskProperties),
	"required": []string{"box"},
}

// calibrationProperties are the optional per-call overrides of the server's
// calibration. Hue is on the 0-179 scale, saturation and value on 0-255.
var calibrationProperties = map[string]any{
	"pixels_per_mm": map[string]any{
		"type":        "number",
		"description": "Pixels per millimeter at the scan magnification (default from server config, 350 at 40x)",
	},
	"stain": map[string]any{
		"type":        "object",
		"description": "DAB stain detection band on the 8-bit HSV scale (H 0-179, S/V 0-255)",
		"properties": map[string]any{
			"hue_min": map[string]any{"type": "number"},
			"hue_max": map[string]any{"type": "number"},
			"sat_min": map[string]any{"type": "number"},
			"val_min": map[string]any{"type": "number"},
			"val_max": map[string]any{"type": "number"},
		},
	},
	"grades": map[string]any{
		"type":        "object",
		"description": "Value thresholds: below strong_below is 3+, below moderate_below is 2+, otherwise 1+",
		"properties": map[string]any{
			"strong_below":   map[string]any{"type": "number"},
			"moderate_below": map[string]any{"type": "number"},
		},
	},
	"iod_normalization": map[string]any{
		"type":        "number",
		"description": "Display divisor for the mean density (default 100000)",
	},
}

var regionProperties = map[string]any{
	"x1": map[string]any{"type": "integer", "description": "Left edge X coordinate (0-based)"},
	"y1": map[string]any{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
	"x2": map[string]any{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
	"y2": map[string]any{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
}

// ToolDefinitions returns all available tools
func ToolDefinitions() []*mcp.Tool {
	return []*mcp.Tool{
		// Whole-slide analysis
		{
			Name: ToolAnalyze,
			Description: "Grade every detected cell of a slide by DAB color and compute the quantitative IHC report: " +
				"cell counts per grade, tissue and positive areas, positive ratio, H-Score (0-300), SI, PP, IRS (0-12), " +
				"positive cell density and mean optical density. Cells come from a manifest file or are passed inline.",
			InputSchema: inputSchema(merge(imageProperty, map[string]any{
				"manifest": map[string]any{
					"type":        "string",
					"description": "Path to a YAML or JSON cell manifest. Its image is used when 'image' is omitted.",
				},
				"cells": map[string]any{
					"type":        "array",
					"items":       cellSchema,
					"description": "Inline cells, used when no manifest is given",
				},
				"format": map[string]any{
					"type":        "string",
					"enum":        []string{"json", "text", "tissue"},
					"description": "Output format: full JSON report (default), 'Key = value' text, or raw/derived tissue analysis",
					"default":     "json",
				},
				"include_cells": map[string]any{
					"type":        "boolean",
					"description": "Include per-cell grades in the JSON output",
					"default":     false,
				},
			}, calibrationProperties), nil),
		},
		{
			Name:        ToolClassifyCell,
			Description: "Classify a single cell by the mean HSV color inside its mask. Returns grade 0-3, the label and the mean HSV.",
			InputSchema: inputSchema(merge(imageProperty, map[string]any{"box": boxSchema}, maskProperties, calibrationProperties),
				[]string{"image", "box"}),
		},
		{
			Name: ToolComputeMetrics,
			Description: "Compute the IHC report from already-counted cells: grade counts, tissue and positive areas and total IOD. " +
				"Use this to recompute scores from an existing report without an image.",
			InputSchema: inputSchema(merge(map[string]any{
				"negative": map[string]any{"type": "integer", "minimum": 0, "description": "Negative cell count"},
				"weak":     map[string]any{"type": "integer", "minimum": 0, "description": "1+ weak positive cell count"},
				"moderate": map[string]any{"type": "integer", "minimum": 0, "description": "2+ moderate positive cell count"},
				"strong":   map[string]any{"type": "integer", "minimum": 0, "description": "3+ strong positive cell count"},
				"tissue_area_pixels": map[string]any{
					"type": "integer", "minimum": 0, "description": "Total cell area in pixels",
				},
				"positive_area_pixels": map[string]any{
					"type": "integer", "minimum": 0, "description": "Positive cell area in pixels",
				},
				"tissue_area_mm2": map[string]any{
					"type": "number", "description": "Tissue area in mm²; derived from pixels when omitted",
				},
				"positive_area_mm2": map[string]any{
					"type": "number", "description": "Positive area in mm²; derived from pixels when omitted",
				},
				"iod": map[string]any{"type": "number", "minimum": 0, "description": "Total integrated optical density"},
			}, calibrationProperties), []string{"negative", "weak", "moderate", "strong"}),
		},

		// Calibration helpers
		{
			Name: ToolSampleStain,
			Description: "Measure the HSV statistics of a reference region (mean and standard deviation per channel), " +
				"grade it under the current calibration and suggest a stain band for recalibration.",
			InputSchema: inputSchema(merge(imageProperty, regionProperties, calibrationProperties),
				[]string{"image", "x1", "y1", "x2", "y2"}),
		},
		{
			Name:        ToolMeasure,
			Description: "Measure the distance between two points in pixels, millimeters and micrometers at the calibrated magnification.",
			InputSchema: inputSchema(merge(regionProperties, map[string]any{
				"pixels_per_mm": calibrationProperties["pixels_per_mm"],
			}), []string{"x1", "y1", "x2", "y2"}),
		},
		{
			Name:        ToolCalibration,
			Description: "Return the server's active calibration and the built-in defaults.",
			InputSchema: inputSchema(map[string]any{}, nil),
		},

		// Inspection
		{
			Name:        ToolCropCell,
			Description: "Crop a cell's bounding box as a PNG. Pixels outside the mask are transparent. Use this to inspect a questionable grade.",
			InputSchema: inputSchema(merge(imageProperty, map[string]any{
				"box": boxSchema,
				"scale": map[string]any{
					"type":        "number",
					"description": "Optional scale factor (e.g., 4.0 to enlarge small cells), at most 16. Default 1.0",
					"default":     1.0,
				},
			}, maskProperties), []string{"image", "box"}),
		},
		{
			Name:        ToolSlideInfo,
			Description: "Load a slide and return its pixel dimensions, format and physical size in millimeters.",
			InputSchema: inputSchema(merge(imageProperty, map[string]any{
				"pixels_per_mm": calibrationProperties["pixels_per_mm"],
			}), []string{"image"}),
		},
	}
}
