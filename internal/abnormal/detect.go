// Package abnormal flags table cells worth looking up in the reference index.
package abnormal

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

// DefaultKeywords mark a textual result as out of range (high, low,
// increased, decreased, positive, negative).
var DefaultKeywords = []string{"yüksek", "düşük", "artmış", "azalmış", "pozitif", "negatif"}

// Flag describes one flagged cell.
type Flag struct {
	Column  string   `json:"column"`
	Value   string   `json:"value"`
	Numeric *float64 `json:"numeric,omitempty"`
	Row     int      `json:"row"`
}

// String renders the flag the way it is fed into the reference query.
func (f Flag) String() string {
	if f.Numeric != nil {
		return f.Column + " " + strconv.FormatFloat(*f.Numeric, 'f', -1, 64)
	}
	return f.Column + " " + f.Value
}

type options struct {
	keywords []string
}

// Option configures Detect.
type Option func(*options)

// WithKeywords replaces DefaultKeywords.
func WithKeywords(keywords ...string) Option {
	return func(o *options) { o.keywords = keywords }
}

var turkishLower = cases.Lower(language.Turkish)

// Detect scans every cell. Numeric cells are always flagged; the decision of
// what is out of range is left to the model together with the references.
// Other cells are flagged when they contain one of the keywords.
func Detect(t *table.Table, opts ...Option) []Flag {
	if t.Empty() {
		return nil
	}
	o := options{keywords: DefaultKeywords}
	for _, opt := range opts {
		opt(&o)
	}

	var flags []Flag
	for i, r := range t.Rows {
		for j, col := range t.Header {
			v := strings.TrimSpace(r[j])
			if v == "" || strings.EqualFold(v, "nan") {
				continue
			}
			if n, ok := parseNumber(v); ok {
				flags = append(flags, Flag{Column: col, Value: v, Numeric: &n, Row: i})
				continue
			}
			if matchKeyword(v, o.keywords) {
				flags = append(flags, Flag{Column: col, Value: v, Row: i})
			}
		}
	}
	return flags
}

// QueryText joins the flags into a single retrieval query.
func QueryText(flags []Flag) string {
	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, " ")
}

// Describe renders flags as a bullet list for prompts and logs.
func Describe(flags []Flag) string {
	var b strings.Builder
	for _, f := range flags {
		fmt.Fprintf(&b, "- satır %d, %s: %s\n", f.Row+1, f.Column, f.Value)
	}
	return b.String()
}

// parseNumber accepts a decimal point or a single decimal comma.
func parseNumber(s string) (float64, bool) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, true
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if n, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func matchKeyword(v string, keywords []string) bool {
	plain := strings.ToLower(v)
	turkish := turkishLower.String(v)
	for _, k := range keywords {
		k = strings.ToLower(k)
		if k == "" {
			continue
		}
		if strings.Contains(plain, k) || strings.Contains(turkish, k) {
			return true
		}
	}
	return false
}
