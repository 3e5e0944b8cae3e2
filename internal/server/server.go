// Package server exposes extraction and analysis over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thywilljoshua/lab-report-analyzer/internal/analysis"
	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
	"github.com/thywilljoshua/lab-report-analyzer/internal/convert"
	"github.com/thywilljoshua/lab-report-analyzer/internal/export"
	"github.com/thywilljoshua/lab-report-analyzer/internal/table"
)

// ExtractFunc turns uploaded PDF bytes into a table.
type ExtractFunc func(ctx context.Context, data []byte) (convert.Result, error)

// Analyzer writes the report for a table.
type Analyzer interface {
	Analyze(ctx context.Context, t *table.Table) (analysis.Report, error)
}

type Config struct {
	Extract        ExtractFunc
	Analyzer       Analyzer
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Now            func() time.Time
}

type Server struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, log: logger}
}

// Handler routes:
//
//	GET  /healthz
//	POST /v1/extract?format=json|csv|xlsx   multipart field "file"
//	POST /v1/analyze                        multipart field "file", or a JSON table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("POST /v1/extract", s.extract)
	mux.HandleFunc("POST /v1/analyze", s.analyze)
	return mux
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type analyzeResponse struct {
	Extraction *convert.Result `json:"extraction,omitempty"`
	Report     analysis.Report `json:"report"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	log := s.log.With("req_id", uuid.NewString(), "route", "extract")

	data, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, log, err)
		return
	}
	res, err := s.cfg.Extract(ctx, data)
	if err != nil {
		s.fail(w, log, err)
		return
	}

	now := s.cfg.Now()
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, res)
	case "csv":
		if res.Table.Empty() {
			writeJSON(w, http.StatusOK, res)
			return
		}
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, res.Table, true); err != nil {
			s.fail(w, log, err)
			return
		}
		writeFile(w, "text/csv; charset=utf-8", export.TimestampedName(now, ".csv"), buf.Bytes())
	case "xlsx":
		if res.Table.Empty() {
			writeJSON(w, http.StatusOK, res)
			return
		}
		data, err := export.XLSX(res.Table)
		if err != nil {
			s.fail(w, log, err)
			return
		}
		writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.TimestampedName(now, ".xlsx"), data)
	default:
		s.fail(w, log, common.InvalidInput("format must be json, csv or xlsx"))
	}
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	log := s.log.With("req_id", uuid.NewString(), "route", "analyze")

	var resp analyzeResponse
	var t *table.Table
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		t = &table.Table{}
		body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		if err := json.NewDecoder(body).Decode(t); err != nil {
			s.fail(w, log, common.InvalidInput("invalid table JSON"))
			return
		}
		for _, row := range t.Rows {
			if len(row) != len(t.Header) {
				s.fail(w, log, common.InvalidInput("every row must have one cell per header column"))
				return
			}
		}
	} else {
		data, err := s.readUpload(w, r)
		if err != nil {
			s.fail(w, log, err)
			return
		}
		res, err := s.cfg.Extract(ctx, data)
		if err != nil {
			s.fail(w, log, err)
			return
		}
		resp.Extraction = &res
		t = res.Table
	}

	rep, err := s.cfg.Analyzer.Analyze(ctx, t)
	if err != nil {
		s.fail(w, log, err)
		return
	}
	resp.Report = rep
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// readUpload returns the bytes of the multipart "file" field. The upload is
// held in memory only for the duration of the request.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, common.InvalidInput("upload too large")
		}
		return nil, common.InvalidInput("expected multipart form with a file field")
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	f, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, common.InvalidInput(convert.MsgFileNotFound)
		}
		return nil, common.InvalidInput("read upload")
	}
	defer func(f multipart.File) { _ = f.Close() }(f)
	return io.ReadAll(f)
}

func (s *Server) fail(w http.ResponseWriter, log *slog.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Error: "INTERNAL", Message: err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		body.Error = appErr.Code
		body.Message = appErr.Message
	}
	if status >= 500 {
		log.Error("http.request_failed", "status", status, "error", err)
	} else {
		log.Info("http.request_rejected", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrExtraction),
		errors.Is(err, common.ErrEmbedding),
		errors.Is(err, common.ErrSearch),
		errors.Is(err, common.ErrRerank),
		errors.Is(err, common.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
