// Package batch analyzes many manifests concurrently.
//
// The ihc engine itself is synchronous; batch parallelizes across images only,
// one manifest per worker.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
	"github.com/ironsheep/ihc-metrics-mcp/internal/imaging"
	"github.com/ironsheep/ihc-metrics-mcp/internal/manifest"
)

// Options configures a batch run.
type Options struct {
	// Calibration is the base calibration. A manifest's pixels_per_mm overrides
	// its ratio for that manifest only.
	Calibration ihc.Calibration

	// Workers bounds concurrent analyses. Values < 1 mean 1.
	Workers int

	// Progress receives a progress bar when non-nil.
	Progress io.Writer

	Logger *slog.Logger
}

// Result is the outcome for one manifest.
type Result struct {
	Manifest string
	Image    string
	Analysis *ihc.Analysis
	Err      error
	Duration time.Duration
}

// Run analyzes every manifest and returns results in input order.
//
// A failing manifest records its error in its Result and does not stop the
// batch. Run returns a non-nil error only when ctx is canceled.
func Run(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	if err := opts.Calibration.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := max(opts.Workers, 1)

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Analyzing slides"),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(opts.Progress)
			}),
		)
	}

	cache := imaging.NewImageCache()
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			res := analyzeOne(cache, path, opts.Calibration)
			res.Duration = time.Since(start)
			results[i] = res

			if res.Err != nil {
				logger.Warn("manifest failed", "manifest", path, "error", res.Err)
			} else {
				logger.Debug("manifest analyzed",
					"manifest", path,
					"cells", res.Analysis.Report.TotalCells,
					"duration", res.Duration)
			}
			if bar != nil {
				if err := bar.Add(1); err != nil {
					logger.Warn("failed to update progress bar", "error", err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func analyzeOne(cache *imaging.ImageCache, path string, base ihc.Calibration) Result {
	res := Result{Manifest: path}

	m, err := manifest.Load(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Image = m.Image

	img, err := cache.Load(m.Image)
	if err != nil {
		res.Err = err
		return res
	}
	// Each slide is analyzed once.
	defer cache.Evict(m.Image)

	cells, err := m.CellsWithin(img.Bounds())
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", path, err)
		return res
	}

	res.Analysis, res.Err = ihc.Analyze(img, cells, m.Calibration(base))
	return res
}

// Failed counts results with an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
