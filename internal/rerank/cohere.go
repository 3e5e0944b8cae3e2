package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
)

const (
	defaultBaseURL = "https://api.cohere.com"
	defaultModel   = "rerank-v3.5"
	rerankEndpoint = "/v2/rerank"
	defaultTimeout = 30 * time.Second
)

// CohereConfig for the Cohere rerank client.
type CohereConfig struct {
	APIKey  string // if empty, falls back to env COHERE_API_KEY
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Cohere struct {
	cfg    CohereConfig
	http   *http.Client
	schema *jsonschema.Schema
	log    *slog.Logger
}

type request struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type response struct {
	ID      string   `json:"id"`
	Results []Result `json:"results"`
}

var responseSchema = map[string]any{
	"type":     "object",
	"required": []string{"results"},
	"properties": map[string]any{
		"results": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"index", "relevance_score"},
				"properties": map[string]any{
					"index":           map[string]any{"type": "integer", "minimum": 0},
					"relevance_score": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
			},
		},
	},
}

func NewCohere(cfg CohereConfig, logger *slog.Logger) (*Cohere, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("COHERE_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing COHERE_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := compileSchema(responseSchema)
	if err != nil {
		return nil, err
	}
	return &Cohere{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		schema: schema,
		log:    logger,
	}, nil
}

func (c *Cohere) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	start := time.Now()
	body, err := json.Marshal(request{Model: c.cfg.Model, Query: query, Documents: documents, TopN: topN})
	if err != nil {
		return nil, common.RerankFailure("marshal request", err)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + rerankEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, common.RerankFailure("create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("rerank.http_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.RerankFailure("send request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.RerankFailure("read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("rerank.status", "status", resp.StatusCode, "body", truncate(string(raw), 300))
		return nil, common.RerankFailure(fmt.Sprintf("cohere status %d", resp.StatusCode), nil)
	}
	if err := validate(c.schema, raw); err != nil {
		c.log.Error("rerank.schema_validation_failed", "error", err)
		return nil, common.RerankFailure("unexpected response shape", err)
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, common.RerankFailure("decode response", err)
	}
	results := out.Results[:0]
	for _, r := range out.Results {
		if r.Index < len(documents) {
			results = append(results, r)
		}
	}
	c.log.Info("rerank.ok",
		"model", c.cfg.Model,
		"documents", len(documents),
		"results", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rerank.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("rerank.json")
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
