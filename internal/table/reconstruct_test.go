package table

import (
	"reflect"
	"strings"
	"testing"
)

const labReport = `| Test | Sonuç | Birim |
|---|---|---|
| Hemoglobin | 16.2 | g/dL |
| Tarih | 2024-01-01 | - |
| Lökosit | 11200 | /uL |`

func TestReconstruct_LabReport(t *testing.T) {
	got := Reconstruct(labReport)

	wantHeader := []string{"Test", "Sonuç", "Birim"}
	if !reflect.DeepEqual(got.Header, wantHeader) {
		t.Fatalf("header = %q, want %q", got.Header, wantHeader)
	}
	wantRecords := []map[string]string{
		{"Test": "Hemoglobin", "Sonuç": "16.2", "Birim": "g/dL"},
		{"Test": "Lökosit", "Sonuç": "11200", "Birim": "/uL"},
	}
	if !reflect.DeepEqual(got.Records(), wantRecords) {
		t.Errorf("records = %v, want %v", got.Records(), wantRecords)
	}
	if got.Outcome() != HasRows {
		t.Errorf("outcome = %v, want %v", got.Outcome(), HasRows)
	}
}

func TestReconstruct_RepeatedHeaderIsSkipped(t *testing.T) {
	input := `| Analyte | Value |
|---|---|
| Glucose | 92 |

Page 2 of 2

| Analyte | Value |
|---|---|
| Urea | 31 |`

	got := Reconstruct(input)
	want := []Row{{"Glucose", "92"}, {"Urea", "31"}}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Errorf("rows = %q, want %q", got.Rows, want)
	}
}

func TestReconstruct_NoiseKeywords(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"lowercase", "| tarih | 01.02.2024 | x |"},
		{"uppercase dotted I", "| TARİH | 01.02.2024 | x |"},
		{"uppercase plain I", "| TAHLIL ADI | a | b |"},
		{"inside a cell", "| Referans aralığı | 4-10 | x |"},
		{"mismatched width", "| Birimi | x |"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "| A | B | C |\n" + tt.line + "\n| Na | 140 | mmol/L |"
			got := Reconstruct(input)
			if len(got.Rows) != 1 || got.Rows[0][0] != "Na" {
				t.Errorf("rows = %q, want only the Na row", got.Rows)
			}
		})
	}
}

func TestReconstruct_CustomKeywords(t *testing.T) {
	input := "| Test | Result |\n| Date | 2024 |\n| Tarih | 2024 |\n| ALT | 40 |"

	got := Reconstruct(input, WithNoiseKeywords("date"))
	want := []Row{{"Tarih", "2024"}, {"ALT", "40"}}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Errorf("rows = %q, want %q", got.Rows, want)
	}

	got = Reconstruct(input, WithNoiseKeywords())
	if len(got.Rows) != 3 {
		t.Errorf("expected filtering disabled, got %d rows", len(got.Rows))
	}
}

func TestReconstruct_MismatchedFragmentsNeverBecomeHeader(t *testing.T) {
	input := `| Test | Value | Unit |
|---|---|---|
| WBC | 7.1 | 10^3/uL |
| Comment | see note |
| x | y | z | w |
| RBC | 4.9 | 10^6/uL |`

	got := Reconstruct(input)
	if !reflect.DeepEqual(got.Header, []string{"Test", "Value", "Unit"}) {
		t.Fatalf("header changed: %q", got.Header)
	}
	want := []Row{{"WBC", "7.1", "10^3/uL"}, {"RBC", "4.9", "10^6/uL"}}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Errorf("rows = %q, want %q", got.Rows, want)
	}
}

func TestReconstruct_EmptyResults(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		outcome Outcome
	}{
		{"empty string", "", EmptyInput},
		{"prose only", "Hasta adı: X\nNo tables here", EmptyInput},
		{"separators only", "|---|---|\n|---|", EmptyInput},
		{"unbalanced pipes", "| a | b\nc | d |", EmptyInput},
		{"blank header", "|  |   |\n| 1 | 2 |", EmptyInput},
		{"header only", "| Test | Value |\n|---|---|", NoMatchingRows},
		{"only noise rows", "| Test | Value |\n| Tarih | 2024 |", NoMatchingRows},
		{"only blank rows", "| Test | Value |\n|  |  |\n|   |  |", NoMatchingRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconstruct(tt.input)
			if got.Outcome() != tt.outcome {
				t.Errorf("outcome = %v, want %v", got.Outcome(), tt.outcome)
			}
			if !got.Empty() {
				t.Errorf("expected no rows, got %q", got.Rows)
			}
		})
	}
}

func TestReconstruct_HeaderNormalization(t *testing.T) {
	got := Reconstruct("| Test |  | Test | Test |\n| a | b | c | d |")
	want := []string{"Test", "column_2", "Test.1", "Test.2"}
	if !reflect.DeepEqual(got.Header, want) {
		t.Errorf("header = %q, want %q", got.Header, want)
	}
	rec := got.Records()[0]
	if rec["column_2"] != "b" || rec["Test.2"] != "d" {
		t.Errorf("record = %v", rec)
	}
}

func TestReconstruct_ColumnCountInvariant(t *testing.T) {
	input := strings.Join([]string{
		"intro text",
		"| A | B | C |",
		"| 1 | 2 | 3 |",
		"| 1 | 2 |",
		"|4|5|6|",
		"| 7 | 8 | 9 | 10 |",
		"  | 11 | 12 | 13 |  ",
	}, "\n")
	got := Reconstruct(input)
	if len(got.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %q", got.Rows)
	}
	for i, r := range got.Rows {
		if len(r) != len(got.Header) {
			t.Errorf("row %d has %d fields, want %d", i, len(r), len(got.Header))
		}
	}
}

func TestReconstruct_Idempotent(t *testing.T) {
	inputs := []string{
		labReport,
		"| Test | Value |\n|---|---|\n| Glucose | 92 |\n| Analyte | Value |\n| Test | Value |\n| Urea |  |",
		"| A |  | A |\n| 1 | 2 | 3 |",
		"| A | A |\n| A | A.1 |\n| x | y |",
	}
	for _, in := range inputs {
		first := Reconstruct(in)
		second := Reconstruct(first.Markdown())
		if !reflect.DeepEqual(first, second) {
			t.Errorf("not idempotent:\nfirst  %#v\nsecond %#v", first, second)
		}
	}
}

func TestReconstruct_RenamedHeaderIsSkipped(t *testing.T) {
	got := Reconstruct("| A | A |\n|---|---|\n| A | A.1 |\n| x | y |")
	want := &Table{Header: []string{"A", "A.1"}, Rows: []Row{{"x", "y"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTable_Markdown(t *testing.T) {
	got := Reconstruct(labReport).Markdown()
	want := "| Test | Sonuç | Birim |\n|---|---|---|\n| Hemoglobin | 16.2 | g/dL |\n| Lökosit | 11200 | /uL |"
	if got != want {
		t.Errorf("Markdown() =\n%s\nwant\n%s", got, want)
	}
	if (&Table{}).Markdown() != "" {
		t.Error("empty table should render as empty string")
	}
}
