// Package config loads application settings from an optional YAML file,
// a .env file and the process environment, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thywilljoshua/lab-report-analyzer/internal/common"
)

// Extractor modes.
const (
	ExtractorGemini = "gemini"
	ExtractorLocal  = "local"
	ExtractorAuto   = "auto"
)

// Config holds all application configuration
type Config struct {
	Gemini     GeminiConfig     `yaml:"gemini"`
	Cohere     CohereConfig     `yaml:"cohere"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Store      StoreConfig      `yaml:"store"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Server     ServerConfig     `yaml:"server"`
}

type GeminiConfig struct {
	APIKey         string        `yaml:"apiKey"`
	Model          string        `yaml:"model"`
	ExtractModel   string        `yaml:"extractModel"`
	EmbeddingModel string        `yaml:"embeddingModel"`
	Dimensions     int           `yaml:"dimensions"`
	Timeout        time.Duration `yaml:"timeout"`
}

type CohereConfig struct {
	APIKey  string        `yaml:"apiKey"`
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetrievalConfig controls the reference lookup.
type RetrievalConfig struct {
	References   string  `yaml:"references"` // local dir or afs URL with *.txt files
	TopK         int     `yaml:"topK"`
	TopN         int     `yaml:"topN"`
	MinRelevance float64 `yaml:"minRelevance"`
}

type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// ExtractionConfig controls PDF to table conversion.
type ExtractionConfig struct {
	Extractor        string   `yaml:"extractor"`
	NoiseKeywords    []string `yaml:"noiseKeywords"`
	AbnormalKeywords []string `yaml:"abnormalKeywords"`
	MaxPDFBytes      int64    `yaml:"maxPDFBytes"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash",
			ExtractModel:   "gemini-2.5-flash",
			EmbeddingModel: "gemini-embedding-001",
			Dimensions:     768,
			Timeout:        2 * time.Minute,
		},
		Cohere: CohereConfig{
			BaseURL: "https://api.cohere.com",
			Model:   "rerank-v3.5",
			Timeout: 30 * time.Second,
		},
		Retrieval: RetrievalConfig{
			References:   "kan_tahlili",
			TopK:         20,
			TopN:         10,
			MinRelevance: 0.7,
		},
		Store: StoreConfig{DSN: "lab_references.db"},
		Extraction: ExtractionConfig{
			Extractor:   ExtractorAuto,
			MaxPDFBytes: 20 << 20,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 3 * time.Minute,
			MaxUploadBytes: 20 << 20,
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.ExtractModel = getEnv("GEMINI_EXTRACT_MODEL", c.Gemini.ExtractModel)
	c.Gemini.EmbeddingModel = getEnv("GEMINI_EMBEDDING_MODEL", c.Gemini.EmbeddingModel)
	c.Gemini.Dimensions = getEnvAsInt("GEMINI_EMBEDDING_DIMS", c.Gemini.Dimensions)
	c.Gemini.Timeout = getEnvAsDuration("GEMINI_TIMEOUT", c.Gemini.Timeout)

	c.Cohere.APIKey = getEnv("COHERE_API_KEY", c.Cohere.APIKey)
	c.Cohere.BaseURL = getEnv("COHERE_BASE_URL", c.Cohere.BaseURL)
	c.Cohere.Model = getEnv("COHERE_MODEL", c.Cohere.Model)
	c.Cohere.Timeout = getEnvAsDuration("COHERE_TIMEOUT", c.Cohere.Timeout)

	c.Retrieval.References = getEnv("REFERENCE_DIR", c.Retrieval.References)
	c.Retrieval.TopK = getEnvAsInt("RETRIEVAL_TOP_K", c.Retrieval.TopK)
	c.Retrieval.TopN = getEnvAsInt("RETRIEVAL_TOP_N", c.Retrieval.TopN)
	c.Retrieval.MinRelevance = getEnvAsFloat("RETRIEVAL_MIN_RELEVANCE", c.Retrieval.MinRelevance)

	c.Store.DSN = getEnv("STORE_DSN", c.Store.DSN)

	c.Extraction.Extractor = strings.ToLower(getEnv("EXTRACTOR", c.Extraction.Extractor))
	c.Extraction.NoiseKeywords = getEnvAsList("NOISE_KEYWORDS", c.Extraction.NoiseKeywords)
	c.Extraction.AbnormalKeywords = getEnvAsList("ABNORMAL_KEYWORDS", c.Extraction.AbnormalKeywords)

	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	c.Server.RequestTimeout = getEnvAsDuration("HTTP_REQUEST_TIMEOUT", c.Server.RequestTimeout)
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	switch c.Extraction.Extractor {
	case ExtractorGemini, ExtractorLocal, ExtractorAuto:
	default:
		return common.ConfigError(fmt.Sprintf("EXTRACTOR must be gemini, local or auto, got %q", c.Extraction.Extractor))
	}
	if c.Extraction.Extractor == ExtractorGemini && c.Gemini.APIKey == "" {
		return common.ConfigError("GEMINI_API_KEY is required for the gemini extractor")
	}
	if c.Gemini.Dimensions <= 0 {
		return common.ConfigError("GEMINI_EMBEDDING_DIMS must be positive")
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.TopN <= 0 {
		return common.ConfigError("RETRIEVAL_TOP_K and RETRIEVAL_TOP_N must be positive")
	}
	if c.Retrieval.TopN > c.Retrieval.TopK {
		return common.ConfigError("RETRIEVAL_TOP_N cannot exceed RETRIEVAL_TOP_K")
	}
	if c.Retrieval.MinRelevance < 0 || c.Retrieval.MinRelevance >= 1 {
		return common.ConfigError("RETRIEVAL_MIN_RELEVANCE must be in [0, 1)")
	}
	if c.Store.DSN == "" {
		return common.ConfigError("STORE_DSN is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
