package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/git-sprout/internal/domain"
)

// Colors defines the color palette for command output.
var Colors = struct {
	Muted     lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Active    lipgloss.Color
	Completed lipgloss.Color
	Merged    lipgloss.Color
	Header    lipgloss.Color
}{
	Muted:     lipgloss.Color("#636E72"), // Gray
	Error:     lipgloss.Color("#D63031"), // Red
	Success:   lipgloss.Color("#00B894"), // Green
	Warning:   lipgloss.Color("#FDCB6E"), // Yellow
	Active:    lipgloss.Color("#74B9FF"), // Light blue
	Completed: lipgloss.Color("#A29BFE"), // Lavender
	Merged:    lipgloss.Color("#00B894"), // Green
	Header:    lipgloss.Color("#DFE6E9"), // Light gray
}

// styles holds the lipgloss styles bound to one output stream.
// Colors are dropped automatically when the stream is not a terminal.
type styles struct {
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	status  map[domain.Status]lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		Header:  r.NewStyle().Bold(true).Foreground(Colors.Header),
		Muted:   r.NewStyle().Foreground(Colors.Muted),
		Success: r.NewStyle().Foreground(Colors.Success),
		Warning: r.NewStyle().Foreground(Colors.Warning),
		Error:   r.NewStyle().Bold(true).Foreground(Colors.Error),
		status: map[domain.Status]lipgloss.Style{
			domain.StatusActive:    r.NewStyle().Foreground(Colors.Active),
			domain.StatusCompleted: r.NewStyle().Foreground(Colors.Completed),
			domain.StatusMerged:    r.NewStyle().Foreground(Colors.Merged),
			domain.StatusFailed:    r.NewStyle().Foreground(Colors.Error),
		},
	}
}

// Status renders a status in its color.
func (s styles) Status(status domain.Status) string {
	if st, ok := s.status[status]; ok {
		return st.Render(string(status))
	}
	return string(status)
}

// renderTable lays rows out in columns padded to the widest cell.
// Widths are measured with lipgloss so styled cells line up.
func renderTable(header []string, rows [][]string, st styles) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, render func(string) string) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = render(cell)
			if i < len(cells)-1 {
				out[i] += strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2)
			}
		}
		return strings.Join(out, "")
	}

	var sb strings.Builder
	sb.WriteString(line(header, func(s string) string { return st.Header.Render(s) }))
	sb.WriteByte('\n')
	for _, row := range rows {
		sb.WriteString(line(row, func(s string) string { return s }))
		sb.WriteByte('\n')
	}
	return sb.String()
}
