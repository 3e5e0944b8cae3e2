// Package reference indexes lab reference texts and retrieves the ones that
// explain a set of flagged values.
package reference

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/thywilljoshua/lab-report-analyzer/internal/abnormal"
	"github.com/thywilljoshua/lab-report-analyzer/internal/ai"
	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
	"github.com/thywilljoshua/lab-report-analyzer/internal/rerank"
)

const (
	DefaultTopK         = 20
	DefaultTopN         = 10
	DefaultMinRelevance = 0.7

	embedBatchSize = 16
)

// Config tunes retrieval.
type Config struct {
	TopK         int
	TopN         int
	MinRelevance float64 // results must score above this; negative selects the default
	Model        string // recorded next to stored embeddings
}

// Reference is a retrieved document that passed the relevance cut.
type Reference struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	Relevance float64 `json:"relevance"`
}

// Retrieval holds the query and the references kept for it.
type Retrieval struct {
	Query      string      `json:"query"`
	References []Reference `json:"references"`
}

// Text joins the kept references with a blank line between them.
func (r Retrieval) Text() string {
	parts := make([]string, 0, len(r.References))
	for _, ref := range r.References {
		parts = append(parts, ref.Content)
	}
	return strings.Join(parts, "\n\n")
}

// IndexStats summarises one Index run.
type IndexStats struct {
	Loaded    int `json:"loaded"`
	Embedded  int `json:"embedded"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

type Service struct {
	store    *Store
	embedder ai.Embedder
	reranker rerank.Reranker
	loader   *Loader
	cfg      Config
	log      *slog.Logger
}

func NewService(store *Store, embedder ai.Embedder, reranker rerank.Reranker, loader *Loader, cfg Config, logger *slog.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.MinRelevance < 0 {
		cfg.MinRelevance = DefaultMinRelevance
	}
	if reranker == nil {
		reranker = rerank.Passthrough{}
	}
	if loader == nil {
		loader = NewLoader()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, embedder: embedder, reranker: reranker, loader: loader, cfg: cfg, log: logger}
}

// Index loads every reference text under location and embeds the ones whose
// content changed since the last run. Stored references whose file is gone
// are removed. An empty location leaves the store untouched.
func (s *Service) Index(ctx context.Context, location string) (IndexStats, error) {
	start := time.Now()
	var stats IndexStats

	sources, err := s.loader.Load(ctx, location)
	if err != nil {
		return stats, common.SearchFailure("load references from "+location, err)
	}
	stats.Loaded = len(sources)
	if len(sources) == 0 {
		s.log.Warn("reference.index.empty", "location", location)
		return stats, nil
	}

	known, err := s.store.Hashes(ctx)
	if err != nil {
		return stats, common.SearchFailure("read index", err)
	}

	var pending []Document
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		h, err := Hash([]byte(src.Content))
		if err != nil {
			return stats, common.SearchFailure("hash "+src.Name, err)
		}
		id := DocumentID(src.Name)
		seen[id] = true
		if prev, ok := known[id]; ok && prev == h {
			stats.Unchanged++
			continue
		}
		pending = append(pending, Document{ID: id, Name: src.Name, Content: src.Content, Hash: h, Model: s.cfg.Model})
	}

	var stale []string
	for id := range known {
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	if err := s.store.Delete(ctx, stale); err != nil {
		return stats, common.SearchFailure("prune index", err)
	}
	stats.Removed = len(stale)

	for i := 0; i < len(pending); i += embedBatchSize {
		end := min(i+embedBatchSize, len(pending))
		batch := pending[i:end]
		texts := make([]string, len(batch))
		for j, d := range batch {
			texts[j] = d.Content
		}
		vecs, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return stats, err
		}
		if len(vecs) != len(batch) {
			return stats, common.EmbeddingFailure("embedding count mismatch", nil)
		}
		for j := range batch {
			batch[j].Embedding = vecs[j]
		}
		if err := s.store.Upsert(ctx, batch); err != nil {
			return stats, common.SearchFailure("write index", err)
		}
		stats.Embedded += len(batch)
	}

	s.log.Info("reference.index.ok",
		"location", location,
		"loaded", stats.Loaded,
		"embedded", stats.Embedded,
		"unchanged", stats.Unchanged,
		"removed", stats.Removed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

// Retrieve finds reference texts for the flagged values. No flags means no
// query and an empty result.
func (s *Service) Retrieve(ctx context.Context, flags []abnormal.Flag) (Retrieval, error) {
	query := abnormal.QueryText(flags)
	out := Retrieval{Query: query}
	if strings.TrimSpace(query) == "" {
		return out, nil
	}
	start := time.Now()

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return out, err
	}
	matches, err := s.store.Search(ctx, vec, s.cfg.TopK)
	if err != nil {
		return out, common.SearchFailure("vector search", err)
	}
	if len(matches) == 0 {
		s.log.Info("reference.retrieve.no_matches", "flags", len(flags))
		return out, nil
	}

	docs := make([]string, len(matches))
	for i, m := range matches {
		docs[i] = m.Content
	}
	ranked, err := s.reranker.Rerank(ctx, query, docs, s.cfg.TopN)
	if err != nil {
		return out, err
	}
	for _, r := range ranked {
		if r.Index < 0 || r.Index >= len(matches) || r.Relevance <= s.cfg.MinRelevance {
			continue
		}
		m := matches[r.Index]
		out.References = append(out.References, Reference{
			ID:        m.ID,
			Name:      m.Name,
			Content:   m.Content,
			Score:     m.Score,
			Relevance: r.Relevance,
		})
	}

	s.log.Info("reference.retrieve.ok",
		"flags", len(flags),
		"matches", len(matches),
		"kept", len(out.References),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Count reports how many references are indexed.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, common.SearchFailure("count references", err)
	}
	return n, nil
}
