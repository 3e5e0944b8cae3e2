package convert

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	rpdf "rsc.io/pdf"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic)
}

// PageCount parses the document trailer and returns the number of pages.
func PageCount(data []byte) (int, error) {
	doc, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return doc.NumPage(), nil
}

// PageText is the text layer of one page, rows joined by newlines. Cells on
// a row that are far apart are separated by at least two spaces.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// PageTexts reads the text layer of every page. Pages without content are
// returned with empty text so page numbers stay aligned.
func PageTexts(data []byte) ([]PageText, error) {
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	out := make([]PageText, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		out = append(out, PageText{Page: i, Text: pageText(r.Page(i))})
	}
	return out, nil
}

// pageText never fails: the parser panics on some malformed content
// streams, and such a page just contributes no text.
func pageText(p lpdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	if p.V.IsNull() {
		return ""
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		// rows failed, try the flat text layer
		if plain, perr := p.GetPlainText(nil); perr == nil {
			return strings.TrimSpace(plain)
		}
		return ""
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position > rows[b].Position })
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if ln := rowLine(row.Content); ln != "" {
			lines = append(lines, ln)
		}
	}
	return strings.Join(lines, "\n")
}

// rowLine joins the glyph runs of one row. A gap wider than cellGap font
// sizes starts a new cell; a smaller visible gap is a word space.
func rowLine(texts lpdf.TextHorizontal) string {
	if len(texts) == 0 {
		return ""
	}
	sorted := make([]lpdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	const (
		wordGap = 0.25
		cellGap = 1.5
	)
	var b strings.Builder
	var prevEnd float64
	for i, t := range sorted {
		if t.S == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			gap := t.X - prevEnd
			switch {
			case gap > cellGap*size:
				b.WriteString("  ")
			case gap > wordGap*size:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prevEnd = math.Max(prevEnd, t.X+t.W)
	}
	return strings.TrimSpace(b.String())
}

// LocalExtractor finds space-aligned tables in the text layer. It needs no
// network access but misses tables in scanned documents.
type LocalExtractor struct{}

func (LocalExtractor) ExtractTables(ctx context.Context, data []byte) (string, error) {
	pages, err := PageTexts(data)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if md := tablesOnly(transformTables(p.Text)); md != "" {
			parts = append(parts, md)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
