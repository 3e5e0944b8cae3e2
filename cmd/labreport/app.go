package main

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"

	"github.com/thywilljoshua/lab-report-analyzer/internal/abnormal"
	"github.com/thywilljoshua/lab-report-analyzer/internal/ai"
	"github.com/thywilljoshua/lab-report-analyzer/internal/analysis"
	"github.com/thywilljoshua/lab-report-analyzer/internal/config"
	"github.com/thywilljoshua/lab-report-analyzer/internal/convert"
	"github.com/thywilljoshua/lab-report-analyzer/internal/reference"
	"github.com/thywilljoshua/lab-report-analyzer/internal/rerank"
)

type globalOptions struct {
	configPath string
	envFile    string
	extractor  string
	verbose    bool
}

// app holds the loaded configuration and the collaborators built from it.
type app struct {
	cfg    *config.Config
	zap    *zap.Logger
	log    *slog.Logger
	gemini *ai.Gemini // nil when GEMINI_API_KEY is not set
}

func newApp(ctx context.Context, opts *globalOptions, level zap.AtomicLevel) (*app, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.extractor != "" {
		cfg.Extraction.Extractor = opts.extractor
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	if opts.verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	log := slog.New(zapslog.NewHandler(logger.Core()))
	slog.SetDefault(log)

	a := &app{cfg: cfg, zap: logger, log: log}
	if cfg.Gemini.APIKey != "" {
		g, err := ai.NewGemini(ctx, ai.GeminiConfig{
			APIKey:         cfg.Gemini.APIKey,
			Model:          cfg.Gemini.Model,
			ExtractModel:   cfg.Gemini.ExtractModel,
			EmbeddingModel: cfg.Gemini.EmbeddingModel,
			Dimensions:     cfg.Gemini.Dimensions,
		}, log)
		if err != nil {
			return nil, err
		}
		a.gemini = g
	} else {
		log.Warn("app.gemini_disabled", "reason", "GEMINI_API_KEY not set")
	}
	return a, nil
}

func (a *app) close() {
	_ = a.zap.Sync()
}

func (a *app) embedder() ai.Embedder {
	if a.gemini == nil {
		return ai.Noop{}
	}
	return a.gemini
}

func (a *app) generator() ai.Generator {
	if a.gemini == nil {
		return ai.Noop{}
	}
	return a.gemini
}

func (a *app) convertConfig() convert.Config {
	cc := convert.Config{
		Mode:          a.cfg.Extraction.Extractor,
		NoiseKeywords: a.cfg.Extraction.NoiseKeywords,
		MaxBytes:      a.cfg.Extraction.MaxPDFBytes,
		Logger:        a.log,
	}
	if a.gemini != nil {
		cc.Tables = a.gemini
	}
	return cc
}

func (a *app) reranker() rerank.Reranker {
	if a.cfg.Cohere.APIKey == "" {
		return rerank.Passthrough{}
	}
	c, err := rerank.NewCohere(rerank.CohereConfig{
		APIKey:  a.cfg.Cohere.APIKey,
		BaseURL: a.cfg.Cohere.BaseURL,
		Model:   a.cfg.Cohere.Model,
		Timeout: a.cfg.Cohere.Timeout,
	}, a.log)
	if err != nil {
		a.log.Warn("app.rerank_disabled", "error", err)
		return rerank.Passthrough{}
	}
	return c
}

// references opens the store and builds the reference service. The returned
// store must be closed by the caller.
func (a *app) references(ctx context.Context) (*reference.Service, *reference.Store, error) {
	store, err := reference.NewStore(ctx, reference.WithDSN(a.cfg.Store.DSN))
	if err != nil {
		return nil, nil, err
	}
	svc := reference.NewService(store, a.embedder(), a.reranker(), reference.NewLoader(), reference.Config{
		TopK:         a.cfg.Retrieval.TopK,
		TopN:         a.cfg.Retrieval.TopN,
		MinRelevance: a.cfg.Retrieval.MinRelevance,
		Model:        a.cfg.Gemini.EmbeddingModel,
	}, a.log)
	return svc, store, nil
}

func (a *app) analyzer(refs analysis.Retriever) *analysis.Service {
	var opts []abnormal.Option
	if kw := a.cfg.Extraction.AbnormalKeywords; len(kw) > 0 {
		opts = append(opts, abnormal.WithKeywords(kw...))
	}
	return analysis.NewService(a.generator(), refs, a.log, opts...)
}
