// Package analysis turns a reconstructed lab table into a written report.
package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thywilljoshua/lab-report-analyzer/internal/abnormal"
	"github.com/thywilljoshua/lab-report-analyzer/internal/ai"
	"github.com/thywilljoshua/lab-report-analyzer/internal/reference"
	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

// NoDataMessage is returned instead of a report when the table has no rows.
const NoDataMessage = "Analiz edilecek veri bulunamadı."

// Retriever looks up reference texts for flagged values.
type Retriever interface {
	Retrieve(ctx context.Context, flags []abnormal.Flag) (reference.Retrieval, error)
}

// Report is the outcome of one analysis.
type Report struct {
	RequestID  string                `json:"request_id"`
	Markdown   string                `json:"markdown"`
	Flags      []abnormal.Flag       `json:"flags"`
	References []reference.Reference `json:"references"`
	Empty      bool                  `json:"empty"`
	Elapsed    time.Duration         `json:"elapsed"`
}

type Service struct {
	gen    ai.Generator
	refs   Retriever
	log    *slog.Logger
	detect []abnormal.Option
}

// NewService wires the generator and an optional retriever. With a nil
// retriever reports are generated from the table alone.
func NewService(gen ai.Generator, refs Retriever, logger *slog.Logger, detect ...abnormal.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, refs: refs, log: logger, detect: detect}
}

func (s *Service) Analyze(ctx context.Context, t *table.Table) (Report, error) {
	return s.AnalyzeStream(ctx, t, nil)
}

// AnalyzeStream is Analyze with each generated fragment passed to onChunk.
func (s *Service) AnalyzeStream(ctx context.Context, t *table.Table, onChunk func(string)) (Report, error) {
	start := time.Now()
	rep := Report{RequestID: uuid.NewString()}
	log := s.log.With("req_id", rep.RequestID)

	if t.Empty() {
		rep.Markdown = NoDataMessage
		rep.Empty = true
		log.Info("analysis.empty_table")
		return rep, nil
	}

	rep.Flags = abnormal.Detect(t, s.detect...)
	log.Info("analysis.start", "rows", len(t.Rows), "columns", len(t.Header), "flags", len(rep.Flags))

	var refText string
	if s.refs != nil && len(rep.Flags) > 0 {
		retrieval, err := s.refs.Retrieve(ctx, rep.Flags)
		if err != nil {
			log.Warn("analysis.references_unavailable", "error", err)
		} else {
			rep.References = retrieval.References
			refText = retrieval.Text()
		}
	}

	prompt := BuildPrompt(t.Markdown(), abnormal.Describe(rep.Flags), refText)
	out, err := s.gen.Generate(ctx, prompt, onChunk)
	if err != nil {
		log.Error("analysis.generate_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return rep, err
	}
	rep.Markdown = strings.TrimSpace(out)
	rep.Elapsed = time.Since(start)

	log.Info("analysis.ok",
		"references", len(rep.References),
		"chars", len(rep.Markdown),
		"elapsed_ms", rep.Elapsed.Milliseconds(),
	)
	return rep, nil
}
