package ai

import (
	"context"

	"github.com/gigmatch/gigmatch/internal/model"
)

// NopGenerator always returns the canned fallback letter. It is used when
// letter generation is disabled in config.
type NopGenerator struct{}

// NewNopGenerator creates a generator that never calls an LLM.
func NewNopGenerator() *NopGenerator {
	return &NopGenerator{}
}

// ComposeLetter returns the fallback letter.
func (NopGenerator) ComposeLetter(context.Context, model.LetterRequest) string {
	return fallbackLetter
}
