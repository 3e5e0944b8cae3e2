package convert

import (
	"log/slog"

	"github.com/thywilljoshua/lab-report-analyzer/internal/ai"
	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

// Extractor modes.
const (
	ModeGemini = "gemini"
	ModeLocal  = "local"
	ModeAuto   = "auto"
)

type Config struct {
	Mode          string            // gemini|local|auto, default auto
	Tables        ai.TableExtractor // remote extractor used by gemini and auto
	NoiseKeywords []string          // nil keeps table.DefaultNoiseKeywords
	MaxBytes      int64             // 0 disables the size check
	Logger        *slog.Logger
}

type Result struct {
	Table     *table.Table `json:"table"`
	Outcome   string       `json:"outcome"`
	Message   string       `json:"message"`
	Pages     int          `json:"pages"`
	Extractor string       `json:"extractor"`
	Markdown  string       `json:"-"`
}
