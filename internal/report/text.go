package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// Text report keys.
const (
	KeyWeakCells         = "Positive Cells 1 Weak"
	KeyModerateCells     = "Positive Cells 2 Moderate"
	KeyStrongCells       = "Positive Cells 3 Strong"
	KeyNegativeCells     = "Negative Cells"
	KeyTotalCells        = "Total Cells Number"
	KeyPositiveAreaMM2   = "Positive Area, mm²"
	KeyTissueAreaMM2     = "Tissue Area, mm²"
	KeyPositiveAreaPx    = "Positive Area, pixel"
	KeyTissueAreaPx      = "Tissue Area, pixel"
	KeyPositiveIntensity = "Positive Intensity"
	KeyIOD               = "IOD"
	KeyPositiveRatio     = "Positive Cells, %"
	KeyPositiveDensity   = "Positive Cells Density"
	KeyMeanDensity       = "Mean Density"
	KeyHScore            = "H-Score"
	KeySI                = "SI"
	KeyPP                = "PP"
	KeyIRS               = "IRS"
)

// WriteText writes rep as "Key = value" lines: raw measurements first, then
// derived scores.
func WriteText(w io.Writer, rep ihc.Report) error {
	lines := []struct {
		key   string
		value string
	}{
		{KeyWeakCells, strconv.Itoa(rep.WeakCells)},
		{KeyModerateCells, strconv.Itoa(rep.ModerateCells)},
		{KeyStrongCells, strconv.Itoa(rep.StrongCells)},
		{KeyNegativeCells, strconv.Itoa(rep.NegativeCells)},
		{KeyTotalCells, strconv.Itoa(rep.TotalCells)},
		{KeyPositiveAreaMM2, formatFloat(rep.Area.PositiveMM2, 4)},
		{KeyTissueAreaMM2, formatFloat(rep.Area.TissueMM2, 4)},
		{KeyPositiveAreaPx, strconv.Itoa(rep.Area.PositivePixels)},
		{KeyTissueAreaPx, strconv.Itoa(rep.Area.TissuePixels)},
		{KeyPositiveIntensity, formatFloat(PositiveIntensity(rep), 2)},
		{KeyIOD, formatFloat(rep.IOD, 0)},
		{KeyPositiveRatio, formatFloat(rep.PositiveRatio, 2) + "%"},
		{KeyPositiveDensity, formatFloat(rep.PositiveDensity, 0)},
		{KeyMeanDensity, formatFloat(rep.MeanDensity, 4)},
		{KeyHScore, formatFloat(rep.HScore, 2)},
		{KeySI, strconv.Itoa(rep.SI)},
		{KeyPP, strconv.Itoa(rep.PP)},
		{KeyIRS, strconv.Itoa(rep.IRS)},
	}

	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s = %s\n", l.key, l.value); err != nil {
			return fmt.Errorf("failed to write %s: %w", l.key, err)
		}
	}
	return nil
}

// ParseText reads a "Key = value" report.
//
// Blank lines, lines without '=' and unknown keys are skipped. A trailing '%' on
// a value is ignored. "Density" is accepted as an alias of the positive cell
// density key. Fields absent from the input stay nil.
func ParseText(r io.Reader) (*TissueAnalysis, error) {
	var ta TissueAnalysis
	setters := textSetters(&ta)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		set, known := setters[key]
		if !known {
			continue
		}

		value = strings.TrimSuffix(strings.TrimSpace(value), "%")
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: invalid number %q", lineNo, key, value)
		}
		set(n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return &ta, nil
}

// textSetters maps every recognized key to the field it fills in ta.
func textSetters(ta *TissueAnalysis) map[string]func(float64) {
	setInt := func(dst **int) func(float64) {
		return func(v float64) { *dst = intPtr(v) }
	}
	setFloat := func(dst **float64) func(float64) {
		return func(v float64) { *dst = ptr(v) }
	}

	return map[string]func(float64){
		KeyWeakCells:         setInt(&ta.Raw.WeakCells),
		KeyModerateCells:     setInt(&ta.Raw.ModerateCells),
		KeyStrongCells:       setInt(&ta.Raw.StrongCells),
		KeyNegativeCells:     setInt(&ta.Raw.NegativeCells),
		KeyTotalCells:        setInt(&ta.Raw.TotalCells),
		KeyPositiveAreaMM2:   setFloat(&ta.Raw.PositiveAreaMM2),
		KeyTissueAreaMM2:     setFloat(&ta.Raw.TissueAreaMM2),
		KeyPositiveAreaPx:    setInt(&ta.Raw.PositiveAreaPx),
		KeyTissueAreaPx:      setInt(&ta.Raw.TissueAreaPx),
		KeyPositiveIntensity: setFloat(&ta.Raw.PositiveIntensity),
		KeyIOD:               setFloat(&ta.Raw.IOD),
		KeyPositiveRatio:     setFloat(&ta.Derived.PositiveRatio),
		KeyPositiveDensity:   setFloat(&ta.Derived.PositiveDensity),
		"Density":            setFloat(&ta.Derived.PositiveDensity),
		KeyMeanDensity:       setFloat(&ta.Derived.MeanDensity),
		KeyHScore:            setFloat(&ta.Derived.HScore),
		KeySI:                setInt(&ta.Derived.SI),
		KeyPP:                setInt(&ta.Derived.PP),
		KeyIRS:               setInt(&ta.Derived.IRS),
	}
}

func formatFloat(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}

func intPtr(v float64) *int {
	return ptr(int(math.Round(v)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
