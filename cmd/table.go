package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"qapages/site"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"} //nolint:gochecknoglobals
	colorError   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"} //nolint:gochecknoglobals
	colorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"} //nolint:gochecknoglobals
	colorMuted   = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"} //nolint:gochecknoglobals

	headerStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2) //nolint:gochecknoglobals
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)            //nolint:gochecknoglobals
)

func statusStyle(status string) lipgloss.Style {
	switch strings.ToLower(status) {
	case site.StatusPassed, "healthy", "pass":
		return cellStyle.Foreground(colorSuccess)
	case site.StatusFailed, "unhealthy", "fail":
		return cellStyle.Foreground(colorError)
	case site.StatusSkipped, site.StatusRunning, "skip":
		return cellStyle.Foreground(colorWarning)
	default:
		return cellStyle.Foreground(colorMuted)
	}
}

func statusIcon(status string) string {
	switch status {
	case site.StatusPassed:
		return "✅"
	case site.StatusFailed:
		return "❌"
	default:
		return "⏭"
	}
}

// table renders rows with lipgloss/table. Cells in statusCol are colored by value;
// statusCol < 0 disables coloring.
type table struct {
	headers   []string
	rows      [][]string
	statusCol int
}

func newTable(headers ...string) *table {
	return &table{headers: headers, statusCol: -1}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	tbl := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderStyle(cellStyle.Foreground(colorMuted)).
		Headers(t.headers...).
		Rows(t.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return headerStyle
			case col == t.statusCol && row < len(t.rows) && col < len(t.rows[row]):
				return statusStyle(t.rows[row][col])
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(w, tbl.Render())
}
