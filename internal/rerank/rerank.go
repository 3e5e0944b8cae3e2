// Package rerank orders retrieved reference documents by relevance to a query.
package rerank

import "context"

// Result points back into the documents slice passed to Rerank.
type Result struct {
	Index     int     `json:"index"`
	Relevance float64 `json:"relevance_score"`
}

// Reranker scores documents against a query and returns at most topN results,
// best first.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error)
}

// Passthrough keeps the incoming order and gives every document full relevance.
// It stands in when no rerank provider is configured.
type Passthrough struct{}

func (Passthrough) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error) {
	n := len(documents)
	if topN > 0 && topN < n {
		n = topN
	}
	out := make([]Result, n)
	for i := range out {
		out[i] = Result{Index: i, Relevance: 1}
	}
	return out, nil
}
