package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/ihc-metrics-mcp/internal/batch"
	"github.com/ironsheep/ihc-metrics-mcp/internal/config"
	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

func sampleResults() []batch.Result {
	counts := ihc.GradeCounts{Negative: 1, Weak: 1, Moderate: 1, Strong: 1}
	area, _ := ihc.NewAreaSummary(400, 300, 10)
	rep := ihc.ComputeCounts(counts, area, 41200, 0)

	return []batch.Result{
		{Manifest: "/data/a.yaml", Image: "/data/a.png", Analysis: &ihc.Analysis{Report: rep}},
		{Manifest: "/data/b.yaml", Err: errors.New("failed to read manifest")},
	}
}

func TestWriteResults_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResults(&buf, "table", sampleResults()); err != nil {
		t.Fatalf("writeResults failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"a.png", "150.00", "b.yaml", "failed to read manifest"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResults(&buf, "text", sampleResults()); err != nil {
		t.Fatalf("writeResults failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# a.png\n", "H-Score = 150.00\n", "# b.yaml\n# error: failed to read manifest\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("text missing %q:\n%s", want, out)
		}
	}
}

func TestWriteResults_JSON(t *testing.T) {
	for _, format := range []string{"json", "tissue"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeResults(&buf, format, sampleResults()); err != nil {
				t.Fatalf("writeResults failed: %v", err)
			}

			var out []map[string]any
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
			}
			if len(out) != 2 {
				t.Fatalf("got %d entries, want 2", len(out))
			}
			if out[0]["report"] == nil || out[1]["error"] != "failed to read manifest" {
				t.Errorf("unexpected entries: %v", out)
			}
			if format == "tissue" {
				rep := out[0]["report"].(map[string]any)
				if _, ok := rep["derived"]; !ok {
					t.Errorf("tissue report missing derived section: %v", rep)
				}
			}
		})
	}
}

func TestMarshalCalibration_ReadBack(t *testing.T) {
	cal := ihc.DefaultCalibration().WithPixelsPerMM(175).WithStain(12, 28, 60, 40, 210)

	out, err := marshalCalibration(cal)
	if err != nil {
		t.Fatalf("marshalCalibration failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cv := config.New()
	if err := config.ReadFile(cv, path); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	s, err := config.Load(cv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Calibration != cal {
		t.Errorf("read back %+v, want %+v", s.Calibration, cal)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := versionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	if !strings.HasPrefix(buf.String(), "ihc-mcp "+Version) {
		t.Errorf("unexpected version output: %q", buf.String())
	}
}

func TestCancelOnSignal(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IHC_LOGGING_LEVEL", "error")
	t.Chdir(t.TempDir())
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	go cancelOnSignal(sig, cancel)
	sig <- os.Interrupt

	// The logger is replaced while the watcher may be logging.
	if err := initConfig(nil, nil); err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	<-ctx.Done()
}
