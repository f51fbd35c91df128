package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

var (
	// TitleStyle is used for the table title.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8B4513"))

	// HeaderStyle is used for column headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	// ErrorStyle marks images that failed to analyze.
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	// CellStyle pads table cells.
	CellStyle = lipgloss.NewStyle().Padding(0, 1)

	// BorderStyle colors the table rules.
	BorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Row is one image in a batch table.
type Row struct {
	Name   string
	Report ihc.Report
	Err    error
}

var tableColumns = []string{"Image", "Cells", "Neg", "1+", "2+", "3+", "Pos %", "H-Score", "SI", "PP", "IRS", "Density", "Mean Density"}

// RenderTable writes a styled summary table with one row per image.
//
// Images that failed are marked in the table and their errors are listed
// below it.
func RenderTable(w io.Writer, title string, rows []Row) error {
	if title != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", TitleStyle.Render(title)); err != nil {
			return fmt.Errorf("failed to write title: %w", err)
		}
	}

	failed := make(map[int]bool)
	var errLines []string

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		Headers(tableColumns...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle.Padding(0, 1)
			case failed[row]:
				return ErrorStyle.Padding(0, 1)
			default:
				return CellStyle
			}
		})

	for i, r := range rows {
		if r.Err != nil {
			failed[i] = true
			errLines = append(errLines, ErrorStyle.Render(r.Name+": "+r.Err.Error()))
			cells := make([]string, len(tableColumns))
			cells[0] = r.Name
			cells[1] = "error"
			t.Row(cells...)
			continue
		}
		rep := r.Report
		t.Row(
			r.Name,
			fmt.Sprint(rep.TotalCells),
			fmt.Sprint(rep.NegativeCells),
			fmt.Sprint(rep.WeakCells),
			fmt.Sprint(rep.ModerateCells),
			fmt.Sprint(rep.StrongCells),
			formatFloat(rep.PositiveRatio, 2),
			formatFloat(rep.HScore, 2),
			fmt.Sprint(rep.SI),
			fmt.Sprint(rep.PP),
			fmt.Sprint(rep.IRS),
			formatFloat(rep.PositiveDensity, 0),
			formatFloat(rep.MeanDensity, 4),
		)
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	for _, line := range errLines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write errors: %w", err)
		}
	}
	return nil
}
