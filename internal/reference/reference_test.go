package reference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thywilljoshua/lab-report-analyzer/internal/abnormal"
	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
	"github.com/thywilljoshua/lab-report-analyzer/internal/rerank"
)

// keywordEmbedder maps text onto one axis per known analyte.
type keywordEmbedder struct {
	calls int
	fail  bool
}

var axes = []string{"hemoglobin", "glukoz", "ferritin"}

func (e *keywordEmbedder) vec(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(axes))
	for i, a := range axes {
		if strings.Contains(lower, a) {
			v[i] = 1
		}
	}
	return v
}

func (e *keywordEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, common.EmbeddingFailure("down", nil)
	}
	return e.vec(text), nil
}

func (e *keywordEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.fail {
		return nil, common.EmbeddingFailure("down", nil)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

type fixedReranker struct {
	results []rerank.Result
	err     error
}

func (f fixedReranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]rerank.Result, error) {
	return f.results, f.err
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), WithDSN(filepath.Join(t.TempDir(), "refs.db")))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeRefs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	docs := []Document{
		{ID: "hgb", Name: "Hemoglobin", Content: "hgb", Hash: 1, Embedding: []float32{1, 0, 0}},
		{ID: "glu", Name: "Glukoz", Content: "glu", Hash: 2, Embedding: []float32{0, 1, 0}},
		{ID: "mix", Name: "Mix", Content: "mix", Hash: 3, Embedding: []float32{1, 1, 0}},
		{ID: "short", Name: "Short", Content: "short", Hash: 4, Embedding: []float32{1, 0}},
	}
	if err := s.Upsert(ctx, docs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].ID != "hgb" || got[1].ID != "mix" {
		t.Fatalf("Search = %+v", got)
	}
	if got[0].Score < 0.999 {
		t.Errorf("score = %v, want 1", got[0].Score)
	}

	// same id replaces the row
	if err := s.Upsert(ctx, []Document{{ID: "hgb", Name: "Hemoglobin", Content: "updated", Hash: ^uint64(0), Embedding: []float32{0, 0, 1}}}); err != nil {
		t.Fatal(err)
	}
	n, _ := s.Count(ctx)
	if n != 4 {
		t.Errorf("Count = %d, want 4", n)
	}
	hashes, err := s.Hashes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if hashes["hgb"] != ^uint64(0) {
		t.Errorf("hash round trip = %d", hashes["hgb"])
	}
}

func TestStore_SearchRejectsEmptyQuery(t *testing.T) {
	if _, err := newTestStore(t).Search(context.Background(), nil, 3); err == nil {
		t.Error("expected error")
	}
}

func TestDocumentID(t *testing.T) {
	if got := DocumentID("Hemoglobin"); got != "Hemoglobin" {
		t.Errorf("got %q", got)
	}
	if got := DocumentID("Ürik asit"); got != "rik asit" {
		t.Errorf("got %q", got)
	}
	got := DocumentID("ÜÇĞ")
	if !strings.HasPrefix(got, "lab_") || got != DocumentID("ÜÇĞ") {
		t.Errorf("fallback id %q not stable", got)
	}
}

func TestLoader_Load(t *testing.T) {
	dir := writeRefs(t, map[string]string{
		"Hemoglobin.txt": "Hemoglobin 12-16 g/dL",
		"Glukoz.TXT":     "Glukoz 70-100",
		"notes.md":       "ignored",
	})
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := NewLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Glukoz" || got[1].Name != "Hemoglobin" {
		t.Fatalf("Load = %+v", got)
	}
	if got[1].Content != "Hemoglobin 12-16 g/dL" {
		t.Errorf("content = %q", got[1].Content)
	}

	missing, err := NewLoader().Load(context.Background(), filepath.Join(dir, "nope"))
	if err != nil || len(missing) != 0 {
		t.Errorf("missing dir = %v, %v", missing, err)
	}
}

func TestService_IndexSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := writeRefs(t, map[string]string{
		"Hemoglobin.txt": "Hemoglobin 12-16 g/dL",
		"Ferritin.txt":   "Ferritin 15-150 ng/mL",
	})
	emb := &keywordEmbedder{}
	svc := NewService(newTestStore(t), emb, nil, nil, Config{Model: "test"}, nil)

	stats, err := svc.Index(ctx, dir)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if stats != (IndexStats{Loaded: 2, Embedded: 2}) {
		t.Errorf("first run = %+v", stats)
	}

	stats, err = svc.Index(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (IndexStats{Loaded: 2, Unchanged: 2}) || emb.calls != 1 {
		t.Errorf("second run = %+v, embed calls = %d", stats, emb.calls)
	}

	if err := os.WriteFile(filepath.Join(dir, "Ferritin.txt"), []byte("Ferritin 20-200"), 0o644); err != nil {
		t.Fatal(err)
	}
	stats, _ = svc.Index(ctx, dir)
	if stats.Embedded != 1 || stats.Unchanged != 1 {
		t.Errorf("after edit = %+v", stats)
	}
	if n, _ := svc.Count(ctx); n != 2 {
		t.Errorf("Count = %d", n)
	}
}

func TestService_IndexRemovesDeletedReferences(t *testing.T) {
	ctx := context.Background()
	dir := writeRefs(t, map[string]string{
		"Hemoglobin.txt": "Hemoglobin 12-16 g/dL",
		"Ferritin.txt":   "Ferritin 15-150 ng/mL",
	})
	store := newTestStore(t)
	svc := NewService(store, &keywordEmbedder{}, nil, nil, Config{}, nil)
	if _, err := svc.Index(ctx, dir); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "Ferritin.txt")); err != nil {
		t.Fatal(err)
	}
	stats, err := svc.Index(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (IndexStats{Loaded: 1, Unchanged: 1, Removed: 1}) {
		t.Errorf("after delete = %+v", stats)
	}
	hits, err := store.Search(ctx, []float32{0, 0, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.Name == "Ferritin" {
			t.Errorf("deleted reference still searchable: %+v", h)
		}
	}

	// a missing location keeps the index as it is
	if _, err := svc.Index(ctx, filepath.Join(dir, "nope")); err != nil {
		t.Fatal(err)
	}
	if n, _ := svc.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestService_IndexEmbeddingFailure(t *testing.T) {
	dir := writeRefs(t, map[string]string{"Hemoglobin.txt": "x"})
	svc := NewService(newTestStore(t), &keywordEmbedder{fail: true}, nil, nil, Config{}, nil)
	if _, err := svc.Index(context.Background(), dir); !errors.Is(err, common.ErrEmbedding) {
		t.Errorf("error = %v, want embedding failure", err)
	}
}

func TestService_Retrieve(t *testing.T) {
	ctx := context.Background()
	dir := writeRefs(t, map[string]string{
		"Hemoglobin.txt": "Hemoglobin referans 12-16",
		"Glukoz.txt":     "Glukoz referans 70-100",
		"Ferritin.txt":   "Ferritin referans 15-150",
	})
	store := newTestStore(t)
	n := 18.2
	flags := []abnormal.Flag{{Column: "Hemoglobin", Value: "18.2", Numeric: &n}}

	tests := []struct {
		name     string
		reranker rerank.Reranker
		want     []string
	}{
		{"passthrough keeps vector order", rerank.Passthrough{}, []string{"Hemoglobin", "Ferritin", "Glukoz"}},
		{"relevance cut", fixedReranker{results: []rerank.Result{{Index: 0, Relevance: 0.95}, {Index: 1, Relevance: 0.7}, {Index: 9, Relevance: 0.99}}}, []string{"Hemoglobin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(store, &keywordEmbedder{}, tt.reranker, nil, Config{MinRelevance: DefaultMinRelevance}, nil)
			if _, err := svc.Index(ctx, dir); err != nil {
				t.Fatal(err)
			}
			got, err := svc.Retrieve(ctx, flags)
			if err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if got.Query != "Hemoglobin 18.2" {
				t.Errorf("query = %q", got.Query)
			}
			if got.References[0].Name != tt.want[0] || len(got.References) != len(tt.want) {
				t.Errorf("references = %+v, want %v", got.References, tt.want)
			}
		})
	}
}

func TestService_RetrieveZeroMinRelevance(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.Upsert(ctx, []Document{{ID: "h", Name: "Hemoglobin", Content: "Hemoglobin", Embedding: []float32{1, 0, 0}}}); err != nil {
		t.Fatal(err)
	}
	n := 18.2
	flags := []abnormal.Flag{{Column: "Hemoglobin", Value: "18.2", Numeric: &n}}
	low := fixedReranker{results: []rerank.Result{{Index: 0, Relevance: 0.3}}}

	tests := []struct {
		name string
		min  float64
		want int
	}{
		{"zero keeps every positive score", 0, 1},
		{"negative selects the default cut", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewService(store, &keywordEmbedder{}, low, nil, Config{MinRelevance: tt.min}, nil).Retrieve(ctx, flags)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.References) != tt.want {
				t.Errorf("references = %+v, want %d", got.References, tt.want)
			}
		})
	}
}

func TestService_RetrieveText(t *testing.T) {
	r := Retrieval{References: []Reference{{Content: "a"}, {Content: "b"}}}
	if got := r.Text(); got != "a\n\nb" {
		t.Errorf("Text = %q", got)
	}
}

func TestService_RetrieveFailures(t *testing.T) {
	ctx := context.Background()
	n := 1.0
	flags := []abnormal.Flag{{Column: "Glukoz", Value: "1", Numeric: &n}}

	empty, err := NewService(newTestStore(t), &keywordEmbedder{}, nil, nil, Config{}, nil).Retrieve(ctx, nil)
	if err != nil || len(empty.References) != 0 {
		t.Errorf("no flags = %+v, %v", empty, err)
	}

	_, err = NewService(newTestStore(t), &keywordEmbedder{fail: true}, nil, nil, Config{}, nil).Retrieve(ctx, flags)
	if !errors.Is(err, common.ErrEmbedding) {
		t.Errorf("embed error = %v", err)
	}

	store := newTestStore(t)
	if err := store.Upsert(ctx, []Document{{ID: "g", Name: "g", Content: "g", Embedding: []float32{0, 1, 0}}}); err != nil {
		t.Fatal(err)
	}
	boom := fixedReranker{err: common.RerankFailure("down", nil)}
	_, err = NewService(store, &keywordEmbedder{}, boom, nil, Config{}, nil).Retrieve(ctx, flags)
	if !errors.Is(err, common.ErrRerank) {
		t.Errorf("rerank error = %v", err)
	}
}
