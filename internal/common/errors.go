package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Kind    error
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel kind of this error.
func (e *AppError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Collaborator failure kinds. Callers match them with errors.Is and decide
// whether to fall back or surface the failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConfig       = errors.New("configuration error")
	ErrExtraction   = errors.New("table extraction failed")
	ErrEmbedding    = errors.New("embedding failed")
	ErrSearch       = errors.New("reference search failed")
	ErrRerank       = errors.New("rerank failed")
	ErrGeneration   = errors.New("generation failed")
)

// Error codes
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeConfig            = "CONFIG_ERROR"
	CodeExtractionFailure = "EXTRACTION_FAILURE"
	CodeEmbeddingFailure  = "EMBEDDING_FAILURE"
	CodeSearchFailure     = "SEARCH_FAILURE"
	CodeRerankFailure     = "RERANK_FAILURE"
	CodeGenerationFailure = "GENERATION_FAILURE"
)

// Error constructors
func NewAppError(code, message string, kind, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Cause:   cause,
	}
}

func InvalidInput(message string) error {
	return NewAppError(CodeInvalidInput, message, ErrInvalidInput, nil)
}

func ConfigError(message string) error {
	return NewAppError(CodeConfig, message, ErrConfig, nil)
}

func ExtractionFailure(message string, cause error) error {
	return NewAppError(CodeExtractionFailure, message, ErrExtraction, cause)
}

func EmbeddingFailure(message string, cause error) error {
	return NewAppError(CodeEmbeddingFailure, message, ErrEmbedding, cause)
}

func SearchFailure(message string, cause error) error {
	return NewAppError(CodeSearchFailure, message, ErrSearch, cause)
}

func RerankFailure(message string, cause error) error {
	return NewAppError(CodeRerankFailure, message, ErrRerank, cause)
}

func GenerationFailure(message string, cause error) error {
	return NewAppError(CodeGenerationFailure, message, ErrGeneration, cause)
}
