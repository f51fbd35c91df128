// Package server implements the MCP (Model Context Protocol) server for the IHC
// metrics engine.
//
// The server exposes slide analysis to MCP clients such as AI assistants, so a
// pathologist's assistant can grade cells and compute clinical scores on demand.
// Protocol handling is delegated to the official Go SDK; this package defines the
// tools and maps their JSON arguments onto the ihc, imaging and report packages.
//
// # Available Tools
//
// Analysis:
//   - ihc_analyze: Grade a slide's cells and compute the full report
//   - ihc_classify_cell: Grade a single cell and return its mean HSV
//   - ihc_compute_metrics: Recompute scores from grade counts and areas
//
// Calibration:
//   - ihc_sample_stain: HSV statistics of a reference region, with a suggested band
//   - ihc_measure: Calibrated distance between two points
//   - ihc_calibration: Active and default calibration
//
// Inspection:
//   - ihc_crop_cell: PNG crop of a cell with its mask applied
//   - ihc_slide_info: Slide dimensions in pixels and millimeters
//
// # Calibration Overrides
//
// Every grading or measuring tool accepts optional pixels_per_mm, stain, grades
// and iod_normalization arguments. They override the server calibration for that
// call only; the server's own calibration never changes.
//
// # Image Caching
//
// Slides are decoded once and cached by path for the lifetime of the server.
//
// # Error Handling
//
// Tool failures (bad arguments, unreadable images, cells outside the slide) are
// returned as tool results with IsError set and the error text as content, so
// the client model can see and correct them. Protocol errors are left to the SDK.
//
// # Usage
//
//	srv := server.New(cal, logger, version)
//	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
//	    log.Fatal(err)
//	}
package server
