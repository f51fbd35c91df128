package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
	"github.com/ironsheep/ihc-metrics-mcp/internal/manifest"
)

var darkBrown = color.RGBA{80, 70, 49, 255}

// writeCase writes a 20x10 slide (one brown and one white 10x10 patch) and a
// manifest listing both patches. It returns the manifest path.
func writeCase(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			if x < 10 {
				img.Set(x, y, darkBrown)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	f, err := os.Create(filepath.Join(dir, name+".png"))
	if err != nil {
		t.Fatalf("failed to create slide: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode slide: %v", err)
	}
	f.Close()

	doc := fmt.Sprintf(`image: %s.png
cells:
  - box: {x: 0, y: 0, w: 10, h: 10}
  - box: {x: 10, y: 0, w: 10, h: 10}
`, name)
	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		paths = append(paths, writeCase(t, dir, fmt.Sprintf("slide-%d", i)))
	}
	paths = append(paths, filepath.Join(dir, "missing.yaml"))

	var progress bytes.Buffer
	results, err := Run(context.Background(), paths, Options{
		Calibration: ihc.DefaultCalibration(),
		Workers:     3,
		Progress:    &progress,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i, r := range results[:6] {
		if r.Manifest != paths[i] {
			t.Errorf("result %d out of order: %s", i, r.Manifest)
		}
		if r.Err != nil {
			t.Errorf("result %d: %v", i, r.Err)
			continue
		}
		rep := r.Analysis.Report
		if rep.TotalCells != 2 || rep.StrongCells != 1 || rep.NegativeCells != 1 {
			t.Errorf("result %d counts: %+v", i, rep)
		}
	}
	if results[6].Err == nil {
		t.Error("missing manifest should fail")
	}
	if Failed(results) != 1 {
		t.Errorf("Failed: got %d, want 1", Failed(results))
	}
	if progress.Len() == 0 {
		t.Error("progress bar wrote nothing")
	}
}

func TestRun_OversizedBox(t *testing.T) {
	dir := t.TempDir()
	good := writeCase(t, dir, "good")
	writeCase(t, dir, "bad")

	bad := filepath.Join(dir, "bad.yaml")
	doc := "image: bad.png\ncells:\n  - box: {x: 0, y: 0, w: 3037000500, h: 3037000500}\n"
	if err := os.WriteFile(bad, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	results, err := Run(context.Background(), []string{bad, good}, Options{
		Calibration: ihc.DefaultCalibration(),
		Workers:     1,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !errors.Is(results[0].Err, manifest.ErrInvalidManifest) {
		t.Errorf("oversized box: expected ErrInvalidManifest, got %v", results[0].Err)
	}
	if results[1].Err != nil {
		t.Errorf("good manifest: %v", results[1].Err)
	}
}

func TestRun_InvalidCalibration(t *testing.T) {
	_, err := Run(context.Background(), nil, Options{Calibration: ihc.Calibration{}})
	if !errors.Is(err, ihc.ErrInvalidRatio) {
		t.Errorf("expected ErrInvalidRatio, got %v", err)
	}
}

func TestRun_Canceled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeCase(t, dir, "a"), writeCase(t, dir, "b")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, paths, Options{Calibration: ihc.DefaultCalibration(), Workers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
