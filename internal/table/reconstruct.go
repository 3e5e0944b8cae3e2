package table

import (
	"fmt"
	"strconv"
	"strings"
)

const separatorMark = "---"

// Reconstruct merges every pipe-delimited fragment of markdown into one
// table. The first non-separator table line is the header and its pipe count
// fixes the expected width. Later lines are dropped when they repeat the
// header, either as written or with duplicate names suffixed. Lines with a
// noise keyword or a different width are dropped too. It never fails: input
// without table lines yields an empty Table.
func Reconstruct(markdown string, opts ...Option) *Table {
	o := newOptions(opts)

	var (
		header      string
		headerCells []string
		renamed     []string
		pipes       int
		data        []string
	)
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if !isTableLine(line) || isSeparator(line) {
			continue
		}
		if header == "" {
			header = line
			headerCells = splitCells(line)
			renamed = normalizeHeader(headerCells)
			pipes = strings.Count(line, "|")
			continue
		}
		if o.isNoise(line) {
			continue
		}
		if strings.Count(line, "|") != pipes {
			continue
		}
		// Markdown() writes the renamed header, so both forms count as repeats.
		if cells := splitCells(line); sameCells(cells, headerCells) || sameCells(cells, renamed) {
			continue
		}
		data = append(data, line)
	}
	if header == "" {
		return &Table{}
	}
	return parse(assemble(header, pipes, data))
}

// assemble lays out the normalized text: header, a fresh separator with one
// dash cell per column, then the accepted lines in order.
func assemble(header string, pipes int, data []string) []string {
	lines := make([]string, 0, len(data)+2)
	lines = append(lines, header)
	lines = append(lines, "|"+strings.Repeat("---|", max(pipes-1, 0)))
	return append(lines, data...)
}

func parse(lines []string) *Table {
	header := normalizeHeader(splitCells(lines[0]))
	if header == nil {
		return &Table{}
	}
	t := &Table{Header: header}
	for _, line := range lines[1:] {
		if isSeparator(line) {
			continue
		}
		cells := splitCells(line)
		if len(cells) != len(header) || blank(cells) || hasSeparator(cells) {
			continue
		}
		t.Rows = append(t.Rows, Row(cells))
	}
	return t
}

// normalizeHeader names blank columns positionally and suffixes duplicates.
// It returns nil when no column carries a name.
func normalizeHeader(cells []string) []string {
	if blank(cells) {
		return nil
	}
	out := make([]string, len(cells))
	used := make(map[string]bool, len(cells))
	suffix := make(map[string]int, len(cells))
	for i, c := range cells {
		if c == "" {
			c = fmt.Sprintf("column_%d", i+1)
		}
		name := c
		for used[name] {
			suffix[c]++
			name = c + "." + strconv.Itoa(suffix[c])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func isTableLine(line string) bool {
	return strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|")
}

func isSeparator(line string) bool {
	return strings.Contains(line, separatorMark)
}

// splitCells splits on pipes, drops the leading and trailing fields produced
// by the outer pipes and trims every cell.
func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return nil
	}
	parts = parts[1 : len(parts)-1]
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func sameCells(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func hasSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Contains(c, separatorMark) {
			return true
		}
	}
	return false
}
