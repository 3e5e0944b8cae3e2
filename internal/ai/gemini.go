package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
)

const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultDimensions     = 768
)

// GeminiConfig holds the models used for each collaborator role.
type GeminiConfig struct {
	APIKey         string
	Model          string
	ExtractModel   string
	EmbeddingModel string
	Dimensions     int
}

// Gemini implements Embedder, Generator and TableExtractor on one client.
// Build it once and share it; the client is safe for concurrent use.
type Gemini struct {
	client     *genai.Client
	model      string
	extract    string
	embedModel string
	dims       int32
	log        *slog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ExtractModel == "" {
		cfg.ExtractModel = cfg.Model
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if logger == nil {
		logger = slog.Default()
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client:     c,
		model:      cfg.Model,
		extract:    cfg.ExtractModel,
		embedModel: cfg.EmbeddingModel,
		dims:       int32(cfg.Dimensions),
		log:        logger,
	}, nil
}

// Dimensions is the length of every vector this embedder returns.
func (g *Gemini) Dimensions() int { return int(g.dims) }

// EmbeddingModel names the model stored alongside indexed vectors.
func (g *Gemini) EmbeddingModel() string { return g.embedModel }

func (g *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *Gemini) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, common.EmbeddingFailure("no input texts", nil)
	}
	start := time.Now()
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	res, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(g.dims),
	})
	if err != nil {
		g.log.Error("ai.embed.error", "model", g.embedModel, "texts", len(texts), "error", err)
		return nil, common.EmbeddingFailure("gemini embed content", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, common.EmbeddingFailure(fmt.Sprintf("gemini returned %d embeddings for %d texts", len(res.Embeddings), len(texts)), nil)
	}
	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		out[i] = e.Values
	}
	g.log.Debug("ai.embed.ok",
		"model", g.embedModel,
		"texts", len(texts),
		"dims", g.dims,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Generate streams the answer with thinking disabled and concatenates the chunks.
func (g *Gemini) Generate(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}

	var b strings.Builder
	for res, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
		if err != nil {
			g.log.Error("ai.generate.stream_error", "model", g.model, "received", b.Len(), "error", err)
			return b.String(), common.GenerationFailure("gemini generate stream", err)
		}
		chunk := res.Text()
		if chunk == "" {
			continue
		}
		b.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	g.log.Info("ai.generate.ok",
		"model", g.model,
		"prompt_len", len(prompt),
		"output_len", b.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b.String(), nil
}

const extractPrompt = `You are a document layout extractor. Return ONLY the tables found in this PDF as GitHub-flavored markdown pipe tables.

RULES:
- Every table row is one line that starts and ends with "|".
- Put a "|---|" separator line under each table header.
- Copy cell text exactly as printed, keep the original language, do not translate or fix values.
- Leave a cell empty when it is empty in the document.
- Omit all prose, headings, images, charts and page furniture.
- DO NOT wrap the response in code fences.`

// ExtractTables sends the PDF inline and asks for table-only markdown.
func (g *Gemini) ExtractTables(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", common.ExtractionFailure("empty pdf", nil)
	}
	start := time.Now()
	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: extractPrompt},
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: pdf}},
			},
		},
	}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}
	res, err := g.client.Models.GenerateContent(ctx, g.extract, content, cfg)
	if err != nil {
		g.log.Error("ai.extract.error", "model", g.extract, "pdf_bytes", len(pdf), "error", err)
		return "", common.ExtractionFailure("gemini API call failed", err)
	}
	md := stripCodeFences(res.Text())
	g.log.Info("ai.extract.ok",
		"model", g.extract,
		"pdf_bytes", len(pdf),
		"markdown_len", len(md),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return md, nil
}

func stripCodeFences(s string) string {
	// Remove markdown code fences like ```markdown, ```
	s = strings.TrimSpace(s)

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
