// Package table rebuilds a single logical table from the pipe-delimited
// markdown emitted by a document layout extractor.
package table

import "strings"

// Row is one record, aligned with Table.Header.
type Row []string

// Table is the reconstructed result. It is built once by Reconstruct and not
// mutated afterwards.
type Table struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// Outcome distinguishes the two empty results from a populated table.
type Outcome int

const (
	// EmptyInput means no table line was found at all.
	EmptyInput Outcome = iota
	// NoMatchingRows means a header was found but every candidate row was rejected.
	NoMatchingRows
	// HasRows means at least one data row survived.
	HasRows
)

func (o Outcome) String() string {
	switch o {
	case EmptyInput:
		return "empty_input"
	case NoMatchingRows:
		return "no_matching_rows"
	default:
		return "rows"
	}
}

// HasHeader reports whether a header was established.
func (t *Table) HasHeader() bool { return t != nil && len(t.Header) > 0 }

// Empty reports whether the table holds no data rows.
func (t *Table) Empty() bool { return t == nil || len(t.Rows) == 0 }

// Outcome classifies the table.
func (t *Table) Outcome() Outcome {
	switch {
	case !t.HasHeader():
		return EmptyInput
	case t.Empty():
		return NoMatchingRows
	default:
		return HasRows
	}
}

// Records returns each row keyed by column name.
func (t *Table) Records() []map[string]string {
	if t.Empty() {
		return nil
	}
	out := make([]map[string]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for i, name := range t.Header {
			rec[name] = r[i]
		}
		out = append(out, rec)
	}
	return out
}

// Markdown renders the normalized form: header, a generated separator with
// one dash cell per column, then the data rows.
func (t *Table) Markdown() string {
	if !t.HasHeader() {
		return ""
	}
	var b strings.Builder
	writeLine(&b, t.Header)
	b.WriteString("\n|")
	b.WriteString(strings.Repeat("---|", len(t.Header)))
	for _, r := range t.Rows {
		b.WriteString("\n")
		writeLine(&b, r)
	}
	return b.String()
}

func writeLine(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |")
}
