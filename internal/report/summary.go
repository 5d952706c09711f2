package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"

	"smacross/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = cellStyle.Bold(true)
	gainStyle   = cellStyle.Foreground(lipgloss.Color("10"))
	lossStyle   = cellStyle.Foreground(lipgloss.Color("9"))
)

// Meta describes the run a summary belongs to.
type Meta struct {
	RunID     string
	Symbol    string
	Benchmark string
	Window    int
	Source    string
	Start     time.Time
	End       time.Time
}

// NewRunID returns a fresh identifier tagging every artifact of one run.
func NewRunID() string {
	return uuid.NewString()
}

var summaryHeaders = []string{"Series", "Total", "CAGR", "Vol", "Sharpe", "Max DD", "Exposure", "Entries"}

// WriteSummary renders stats as a table preceded by a one-line run header.
func WriteSummary(w io.Writer, stats []Stats, meta Meta) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("SMA(%d) crossover: %s vs %s", meta.Window, meta.Symbol, meta.Benchmark)))
	b.WriteByte('\n')
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s to %s  source=%s  run=%s",
		dateOrDash(meta.Start), dateOrDash(meta.End), meta.Source, meta.RunID)))
	b.WriteByte('\n')

	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = summaryRow(s)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(summaryHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return labelStyle
			}
			if row < 0 || row >= len(stats) {
				return cellStyle
			}
			switch col {
			case 1, 2:
				return signStyle(stats[row].TotalReturn)
			case 5:
				if stats[row].MaxDrawdown > 0 {
					return lossStyle
				}
			}
			return cellStyle
		})

	b.WriteString(t.String())
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

func summaryRow(s Stats) []string {
	exposure, entries := "-", "-"
	if s.HasPosition {
		exposure = fmt.Sprintf("%.1f%%", s.Exposure*100)
		entries = strconv.Itoa(s.Entries)
	}
	return []string{
		s.Label,
		FormatPct(s.TotalReturn),
		FormatPct(s.CAGR),
		fmt.Sprintf("%.1f%%", s.AnnVol*100),
		FormatRatio(s.Sharpe),
		FormatDrawdown(s.MaxDrawdown),
		exposure,
		entries,
	}
}

func signStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return gainStyle
	case v < 0:
		return lossStyle
	default:
		return cellStyle
	}
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "latest"
	}
	return domain.DateKey(t)
}
