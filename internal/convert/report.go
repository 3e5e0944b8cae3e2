package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

// ReportDoc is everything written into a markdown analysis report.
type ReportDoc struct {
	Title      string
	Source     string
	RequestID  string
	Generated  time.Time
	Table      *table.Table
	Flagged    string // bullet list of flagged values
	References []string
	Analysis   string
}

// ReportName derives a report file name from the source PDF path.
func ReportName(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if s := slugify(stem); s != "" {
		return s + "-analiz.md"
	}
	return "analiz.md"
}

// RenderReport renders doc as markdown with a front matter block.
func RenderReport(doc ReportDoc) string {
	title := doc.Title
	if title == "" {
		title = "Tıbbi Analiz Raporu"
	}
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: \"%s\"\n", escapeQuotes(title))
	if doc.Source != "" {
		fmt.Fprintf(&b, "source: \"%s\"\n", escapeQuotes(filepath.Base(doc.Source)))
	}
	if doc.RequestID != "" {
		fmt.Fprintf(&b, "request_id: \"%s\"\n", doc.RequestID)
	}
	if !doc.Generated.IsZero() {
		fmt.Fprintf(&b, "generated: \"%s\"\n", doc.Generated.Format(time.RFC3339))
	}
	b.WriteString("---\n\n")

	b.WriteString("## 🏥 ")
	b.WriteString(title)
	b.WriteString("\n\n")

	if doc.Table.HasHeader() {
		b.WriteString("### Tahlil Sonuçları\n\n")
		b.WriteString(doc.Table.Markdown())
		b.WriteString("\n\n")
	}
	if f := strings.TrimSpace(doc.Flagged); f != "" {
		b.WriteString("### İncelenen Değerler\n\n")
		b.WriteString(f)
		b.WriteString("\n\n")
	}
	if a := stripMarkdownCodeFences(doc.Analysis); a != "" {
		b.WriteString("### Analiz\n\n")
		b.WriteString(a)
		b.WriteString("\n\n")
	}
	if len(doc.References) > 0 {
		b.WriteString("### Kullanılan Referanslar\n\n")
		for _, r := range doc.References {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// WriteReport renders doc into path, creating parent directories.
func WriteReport(path string, doc ReportDoc) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(RenderReport(doc)), 0o644)
}

func escapeQuotes(s string) string { return strings.ReplaceAll(s, "\"", "\\\"") }

func stripMarkdownCodeFences(s string) string {
	s = strings.TrimSpace(s)

	// ```markdown, ```md or a bare fence
	if strings.HasPrefix(s, "```") {
		firstNewline := strings.Index(s, "\n")
		if firstNewline == -1 {
			return ""
		}
		s = s[firstNewline+1:]
	}

	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}

	return s
}
