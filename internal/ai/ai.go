package ai

import (
	"context"

	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
)

// Embedder turns text into vectors for the reference index.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces the analysis text. onChunk, when set, receives each
// streamed fragment as it arrives.
type Generator interface {
	Generate(ctx context.Context, prompt string, onChunk func(string)) (string, error)
}

// TableExtractor converts a PDF into markdown that contains only its tables.
type TableExtractor interface {
	ExtractTables(ctx context.Context, pdf []byte) (string, error)
}

// Noop is used when no provider is configured. Extraction yields nothing;
// embedding and generation report their failure kind so callers can fall back.
type Noop struct{}

func (Noop) ExtractTables(ctx context.Context, pdf []byte) (string, error) { return "", nil }

func (Noop) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, common.EmbeddingFailure("no embedding provider configured", nil)
}

func (Noop) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, common.EmbeddingFailure("no embedding provider configured", nil)
}

func (Noop) Generate(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	return "", common.GenerationFailure("no generation provider configured", nil)
}
