package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thywilljoshua/lab-report-analyzer/internal/abnormal"
	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)

	headerCellStyle = lipgloss.NewStyle().Bold(true)
)

// printTable renders the table with aligned columns inside a box.
func printTable(w io.Writer, t *table.Table) {
	if !t.HasHeader() {
		fmt.Fprintln(w, warnStyle.Render("no table found"))
		return
	}
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range t.Rows {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			pad := c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
			if style != nil {
				pad = style.Render(pad)
			}
			parts[i] = pad
		}
		return strings.Join(parts, dimStyle.Render(" │ "))
	}

	lines := []string{line(t.Header, &headerCellStyle)}
	for _, r := range t.Rows {
		lines = append(lines, line(r, nil))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func printSummary(w io.Writer, label string, pairs ...any) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(label))
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, "  %s %v", dimStyle.Render(fmt.Sprint(pairs[i])+":"), pairs[i+1])
	}
	fmt.Fprintln(w, b.String())
}

func printFlags(w io.Writer, flags []abnormal.Flag) {
	if len(flags) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("İncelenen değerler"))
	for _, f := range flags {
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(f.Column+":"), warnStyle.Render(f.Value))
	}
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
