package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thywilljoshua/lab-report-analyzer/internal/abnormal"
	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
	"github.com/thywilljoshua/lab-report-analyzer/internal/reference"
	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

type recordingGenerator struct {
	prompt string
	chunks []string
	err    error
	calls  int
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	g.calls++
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	for _, c := range g.chunks {
		if onChunk != nil {
			onChunk(c)
		}
	}
	return strings.Join(g.chunks, ""), nil
}

type stubRetriever struct {
	got []abnormal.Flag
	out reference.Retrieval
	err error
}

func (r *stubRetriever) Retrieve(ctx context.Context, flags []abnormal.Flag) (reference.Retrieval, error) {
	r.got = flags
	return r.out, r.err
}

func labTable() *table.Table {
	return &table.Table{
		Header: []string{"Test", "Sonuç", "Durum"},
		Rows: []table.Row{
			{"Hemoglobin", "18.2", "Yüksek"},
			{"Glukoz", "95", ""},
		},
	}
}

func TestAnalyze_EmptyTable(t *testing.T) {
	gen := &recordingGenerator{}
	svc := NewService(gen, nil, nil)
	for _, tb := range []*table.Table{nil, {Header: []string{"a"}}} {
		rep, err := svc.Analyze(context.Background(), tb)
		if err != nil {
			t.Fatal(err)
		}
		if rep.Markdown != NoDataMessage || !rep.Empty {
			t.Errorf("report = %+v", rep)
		}
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times", gen.calls)
	}
}

func TestAnalyze_WithReferences(t *testing.T) {
	gen := &recordingGenerator{chunks: []string{"## Rapor\n", "Hemoglobin yüksek."}}
	refs := &stubRetriever{out: reference.Retrieval{References: []reference.Reference{
		{Name: "Hemoglobin", Content: "Hemoglobin referans aralığı 12-16 g/dL", Relevance: 0.9},
	}}}
	var streamed []string
	rep, err := NewService(gen, refs, nil).AnalyzeStream(context.Background(), labTable(), func(s string) {
		streamed = append(streamed, s)
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Markdown != "## Rapor\nHemoglobin yüksek." {
		t.Errorf("markdown = %q", rep.Markdown)
	}
	if len(streamed) != 2 {
		t.Errorf("streamed %v", streamed)
	}
	if rep.RequestID == "" || len(rep.References) != 1 {
		t.Errorf("report = %+v", rep)
	}
	// 18.2, Yüksek and 95 are flagged
	if len(rep.Flags) != 3 || len(refs.got) != 3 {
		t.Errorf("flags = %+v", rep.Flags)
	}
	for _, want := range []string{
		"| Hemoglobin | 18.2 | Yüksek |",
		"12-16 g/dL",
		"Türkçe olarak detaylı bir analiz raporu hazırla.",
	} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnalyze_RetrievalFailureFallsBack(t *testing.T) {
	gen := &recordingGenerator{chunks: []string{"ok"}}
	refs := &stubRetriever{err: common.SearchFailure("index down", nil)}
	rep, err := NewService(gen, refs, nil).Analyze(context.Background(), labTable())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Markdown != "ok" || len(rep.References) != 0 {
		t.Errorf("report = %+v", rep)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d", gen.calls)
	}
}

func TestAnalyze_GenerationFailure(t *testing.T) {
	gen := &recordingGenerator{err: common.GenerationFailure("quota", nil)}
	_, err := NewService(gen, nil, nil).Analyze(context.Background(), labTable())
	if !errors.Is(err, common.ErrGeneration) {
		t.Errorf("error = %v, want generation failure", err)
	}
}

func TestBuildPrompt_OmitsEmptySections(t *testing.T) {
	p := BuildPrompt("| a |", "", "  ")
	if strings.Contains(p, "İncelenmesi gereken") {
		t.Error("flag section should be omitted")
	}
	if strings.Contains(p, "\n\n\n") {
		t.Error("empty sections left blank lines")
	}
}
