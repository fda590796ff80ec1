// Package tokenizer estimates token counts for assembled prompts.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"
	// FallbackEncoding is used for models tiktoken has no mapping for.
	FallbackEncoding = "cl100k_base"
)

// Counter estimates token counts for text content.
type Counter interface {
	// Name is the model or encoding the counter resolved to.
	Name() string
	CountString(input string) (int, error)
}

// Config selects the model whose encoding is used for counting.
type Config struct {
	Model string
}

// NewCounter returns a tiktoken Counter for the configured model. Model names are
// matched case-insensitively; an unknown model counts with FallbackEncoding, which
// the counter's Name reports.
func NewCounter(config Config) (Counter, error) {
	model := strings.ToLower(strings.TrimSpace(config.Model))
	if model == "" {
		model = DefaultModel
	}
	if encoding, modelErr := tiktoken.EncodingForModel(model); modelErr == nil && encoding != nil {
		return tiktokenCounter{encoding: encoding, name: model}, nil
	}
	fallback, fallbackErr := tiktoken.GetEncoding(FallbackEncoding)
	if fallbackErr != nil {
		return nil, fmt.Errorf("load %s encoding for model %q: %w", FallbackEncoding, model, fallbackErr)
	}
	return tiktokenCounter{encoding: fallback, name: FallbackEncoding}, nil
}
