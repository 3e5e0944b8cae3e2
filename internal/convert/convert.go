// Package convert turns a lab report PDF into one reconstructed table.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

// User-facing messages.
const (
	MsgFileNotFound = "PDF dosyası bulunamadı"
	MsgProcessed    = "PDF başarıyla işlendi"
	MsgNoTable      = "PDF içinde tablo bulunamadı"
	MsgNoRows       = "Tabloda veri satırı bulunamadı"
)

// Run reads the PDF at pdfPath and extracts its table.
func Run(ctx context.Context, pdfPath string, cfg Config) (Result, error) {
	if pdfPath == "" {
		return Result{}, common.InvalidInput(MsgFileNotFound)
	}
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, common.InvalidInput(MsgFileNotFound)
		}
		return Result{}, fmt.Errorf("read %s: %w", pdfPath, err)
	}
	return Extract(ctx, data, cfg)
}

// Extract runs the configured extractor over the PDF bytes and reconstructs
// the table from its markdown.
func Extract(ctx context.Context, data []byte, cfg Config) (Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if len(data) == 0 || !IsPDF(data) {
		return Result{}, common.InvalidInput("dosya geçerli bir PDF değil")
	}
	if cfg.MaxBytes > 0 && int64(len(data)) > cfg.MaxBytes {
		return Result{}, common.InvalidInput(fmt.Sprintf("PDF %d bayttan büyük olamaz", cfg.MaxBytes))
	}
	start := time.Now()

	pages, err := PageCount(data)
	if err != nil {
		log.Warn("convert.page_count_failed", "error", err)
	}

	var opts []table.Option
	if cfg.NoiseKeywords != nil {
		opts = append(opts, table.WithNoiseKeywords(cfg.NoiseKeywords...))
	}

	md, used, err := extractMarkdown(ctx, data, cfg, log, opts)
	if err != nil {
		return Result{}, err
	}
	t := table.Reconstruct(md, opts...)

	res := Result{
		Table:     t,
		Outcome:   t.Outcome().String(),
		Pages:     pages,
		Extractor: used,
		Markdown:  md,
	}
	switch t.Outcome() {
	case table.EmptyInput:
		res.Message = MsgNoTable
	case table.NoMatchingRows:
		res.Message = MsgNoRows
	default:
		res.Message = MsgProcessed
	}
	log.Info("convert.extract.ok",
		"extractor", used,
		"pages", pages,
		"columns", len(t.Header),
		"rows", len(t.Rows),
		"outcome", res.Outcome,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func extractMarkdown(ctx context.Context, data []byte, cfg Config, log *slog.Logger, opts []table.Option) (string, string, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeAuto
	}
	switch mode {
	case ModeLocal:
		md, err := LocalExtractor{}.ExtractTables(ctx, data)
		if err != nil {
			return "", ModeLocal, common.ExtractionFailure("read pdf text layer", err)
		}
		return md, ModeLocal, nil
	case ModeGemini:
		if cfg.Tables == nil {
			return "", ModeGemini, common.ConfigError("gemini extractor is not configured")
		}
		md, err := cfg.Tables.ExtractTables(ctx, data)
		return md, ModeGemini, err
	case ModeAuto:
		var remote string
		if cfg.Tables != nil {
			md, err := cfg.Tables.ExtractTables(ctx, data)
			if err == nil && !table.Reconstruct(md, opts...).Empty() {
				return md, ModeGemini, nil
			}
			if err != nil {
				log.Warn("convert.remote_extract_failed", "error", err)
			}
			remote = md
		}
		md, err := LocalExtractor{}.ExtractTables(ctx, data)
		if err != nil {
			if remote != "" {
				return remote, ModeGemini, nil
			}
			return "", ModeLocal, common.ExtractionFailure("read pdf text layer", err)
		}
		if remote != "" && table.Reconstruct(md, opts...).Empty() {
			return remote, ModeGemini, nil
		}
		return md, ModeLocal, nil
	default:
		return "", mode, common.ConfigError(fmt.Sprintf("unknown extractor %q", mode))
	}
}
