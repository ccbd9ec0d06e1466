package ai

import (
	"github.com/tiktoken-go/tokenizer"
)

// TokenEstimator counts tokens for calls whose vendor reply carries no
// usage block. Counts are approximate for non-OpenAI vendors; they only
// feed cost estimates and usage aggregates.
type TokenEstimator struct {
	codec tokenizer.Codec
}

// NewTokenEstimator loads the cl100k_base codec. When the codec cannot be
// loaded the estimator falls back to a words*1.3 approximation.
func NewTokenEstimator() *TokenEstimator {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return &TokenEstimator{}
	}
	return &TokenEstimator{codec: codec}
}

// Estimate returns the token count of content. A nil estimator uses the
// word approximation.
func (te *TokenEstimator) Estimate(content string) int {
	if content == "" {
		return 0
	}
	if te != nil && te.codec != nil {
		ids, _, err := te.codec.Encode(content)
		if err == nil {
			return len(ids)
		}
	}
	return wordEstimate(content)
}

// wordEstimate assumes ~1.3 tokens per whitespace-separated word.
func wordEstimate(content string) int {
	words := 0
	inWord := false
	for _, r := range content {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				words++
				inWord = true
			}
		}
	}
	return int(float64(words) * 1.3)
}
