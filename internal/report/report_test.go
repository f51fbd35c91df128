package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// referenceReport is the report of the 8 / 11075 / 888 / 849 slide.
func referenceReport() ihc.Report {
	area := ihc.AreaSummary{TissuePixels: 7733212, TissueMM2: 2.3378, PositivePixels: 6500000, PositiveMM2: 53.0612}
	counts := ihc.GradeCounts{Negative: 849, Weak: 8, Moderate: 11075, Strong: 888}
	return ihc.ComputeCounts(counts, area, 1300000000, ihc.DefaultIODNormalization)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, referenceReport()); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Positive Cells 1 Weak = 8\n",
		"Positive Cells 2 Moderate = 11075\n",
		"Positive Cells 3 Strong = 888\n",
		"Total Cells Number = 12820\n",
		"Tissue Area, mm² = 2.3378\n",
		"Positive Cells, % = 93.38%\n",
		"Positive Cells Density = 5121\n",
		"H-Score = 193.62\n",
		"IRS = 8\n",
		"IOD = 1300000000\n",
		"Positive Intensity = 200.00\n",
		"Mean Density = 0.0020\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestParseText_RoundTrip(t *testing.T) {
	rep := referenceReport()

	var buf bytes.Buffer
	if err := WriteText(&buf, rep); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	ta, err := ParseText(&buf)
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}

	want := FromReport(rep, "")
	gotJSON, _ := json.Marshal(ta)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("round trip mismatch\ngot:  %s\nwant: %s", gotJSON, wantJSON)
	}
}

func TestParseText_Partial(t *testing.T) {
	input := `
Sample = BIOBANK-F10
Total Cells Number = 120
no separator here
Density = 4410
Positive Cells, % = 45.5%
`
	ta, err := ParseText(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}

	if ta.Raw.TotalCells == nil || *ta.Raw.TotalCells != 120 {
		t.Errorf("TotalCells: got %v, want 120", ta.Raw.TotalCells)
	}
	if ta.Derived.PositiveDensity == nil || *ta.Derived.PositiveDensity != 4410 {
		t.Errorf("PositiveDensity: got %v, want 4410", ta.Derived.PositiveDensity)
	}
	if ta.Derived.PositiveRatio == nil || *ta.Derived.PositiveRatio != 45.5 {
		t.Errorf("PositiveRatio: got %v, want 45.5", ta.Derived.PositiveRatio)
	}
	if ta.Raw.WeakCells != nil || ta.Derived.HScore != nil {
		t.Error("absent fields should stay nil")
	}
}

func TestParseText_InvalidNumber(t *testing.T) {
	_, err := ParseText(strings.NewReader("H-Score = high\n"))
	if err == nil {
		t.Fatal("expected error for non-numeric H-Score")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error should name the line, got %v", err)
	}
}

func TestFromReport(t *testing.T) {
	ta := FromReport(referenceReport(), "/slides/F10.png")

	if ta.Images.RawImagePath == nil || *ta.Images.RawImagePath != "/slides/F10.png" {
		t.Errorf("RawImagePath: got %v", ta.Images.RawImagePath)
	}
	if ta.Images.ParsedImagePath != nil {
		t.Error("ParsedImagePath should be nil")
	}
	if *ta.Derived.IRS != 8 || *ta.Derived.HScore != 193.62 {
		t.Errorf("derived scores: IRS %d, H-Score %v", *ta.Derived.IRS, *ta.Derived.HScore)
	}

	data, err := json.Marshal(ta)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, key := range []string{`"raw"`, `"derived"`, `"pos_cells_2_moderate":11075`, `"h_score":193.62`} {
		if !bytes.Contains(data, []byte(key)) {
			t.Errorf("JSON missing %s: %s", key, data)
		}
	}
}

func TestPositiveIntensity_NoPositiveArea(t *testing.T) {
	if got := PositiveIntensity(ihc.Report{IOD: 100}); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestRenderTable(t *testing.T) {
	rows := []Row{
		{Name: "F10.png", Report: referenceReport()},
		{Name: "F11.png", Err: errors.New("cell 3: mask size does not match bounding box")},
	}

	var buf bytes.Buffer
	if err := RenderTable(&buf, "IHC Metrics", rows); err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"IHC Metrics", "H-Score", "F10.png", "193.62", "93.38", "F11.png", "mask size"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q\n%s", want, out)
		}
	}
}

func TestRenderTable_AlignedWithColor(t *testing.T) {
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.TrueColor)
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })

	rows := []Row{
		{Name: "F10.png", Report: referenceReport()},
		{Name: "a-much-longer-slide-name.png", Report: ihc.Report{}},
		{Name: "F11.png", Err: errors.New("failed to load image")},
	}

	var buf bytes.Buffer
	if err := RenderTable(&buf, "", rows); err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatal("expected styled output")
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// Table lines come first; the trailing error list is not part of the grid.
	grid := lines[:len(lines)-1]
	want := lipgloss.Width(grid[0])
	for i, line := range grid {
		if got := lipgloss.Width(line); got != want {
			t.Errorf("line %d width %d, want %d:\n%s", i, got, want, buf.String())
		}
	}
}
