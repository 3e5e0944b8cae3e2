package convert

import (
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9\-]+`)

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

const maxBlockRows = 200

// transformTables finds blocks of space-aligned lines (cells split by 2+
// spaces) and renders them as Markdown tables. Other lines pass through.
func transformTables(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	i := 0
	for i < len(lines) {
		block := columnBlock(lines[i:])
		if len(block) < 2 {
			out = append(out, lines[i])
			i++
			continue
		}
		out = append(out, pipeLine(block[0]))
		sep := make([]string, len(block[0]))
		for j := range sep {
			sep[j] = "---"
		}
		out = append(out, pipeLine(sep))
		for _, row := range block[1:] {
			out = append(out, pipeLine(row))
		}
		out = append(out, "")
		i += len(block)
	}
	return strings.Join(out, "\n")
}

// columnBlock returns the leading lines that split into the same number
// (at least two) of cells.
func columnBlock(lines []string) [][]string {
	var block [][]string
	cols := 0
	for _, ln := range lines {
		ln = strings.TrimRight(ln, " ")
		if ln == "" {
			break
		}
		parts := splitBy2Spaces(ln)
		if len(parts) < 2 {
			break
		}
		if cols == 0 {
			cols = len(parts)
		}
		if len(parts) != cols || len(block) == maxBlockRows {
			break
		}
		block = append(block, parts)
	}
	return block
}

// tablesOnly drops every line that is not part of a pipe table.
func tablesOnly(md string) string {
	var out []string
	inTable := false
	for _, ln := range strings.Split(md, "\n") {
		t := strings.TrimSpace(ln)
		if strings.HasPrefix(t, "|") && strings.HasSuffix(t, "|") {
			out = append(out, t)
			inTable = true
			continue
		}
		if inTable {
			out = append(out, "")
			inTable = false
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func pipeLine(cells []string) string {
	return "| " + strings.Join(trimAll(cells), " | ") + " |"
}

var twoPlusSpaces = regexp.MustCompile(`\s{2,}`)

func splitBy2Spaces(s string) []string {
	return twoPlusSpaces.Split(strings.TrimSpace(s), -1)
}

func trimAll(a []string) []string {
	out := make([]string, len(a))
	for i, v := range a {
		out[i] = strings.ReplaceAll(strings.TrimSpace(v), "|", "/")
	}
	return out
}
