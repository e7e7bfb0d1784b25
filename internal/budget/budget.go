// Package budget estimates prompt sizes against model context windows so the
// tool loop can trim transcripts before a request overflows.
package budget

import (
	"math"
	"strings"
)

// EstimateTokensFromChars uses ~4 characters per token, rounded up.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of s.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(len(s))
}

const defaultContext = 8192

// knownModelMax holds approximate context sizes for common models.
var knownModelMax = map[string]int{
	"gpt-4o":             128_000,
	"gpt-4o-mini":        128_000,
	"gpt-4-turbo":        128_000,
	"gpt-4":              8_192,
	"gpt-3.5-turbo":      16_384,
	"gpt-4.1":            1_000_000,
	"gpt-4.1-mini":       1_000_000,
	"llama-3":            8_192,
	"llama-3.1":          128_000,
	"gpt-oss-20b":        4_096,
	"openai/gpt-oss-20b": 4_096,
}

// suffixSizes maps name suffixes such as "-128k" to context sizes.
var suffixSizes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"512k", 512_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
	{"16k", 16_384},
}

// ModelContextTokens returns the context window for modelName, falling back
// to name heuristics and then to 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return defaultContext
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	for _, s := range suffixSizes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return defaultContext
}

// RemainingContext returns the input budget left after reserving output
// tokens and counting promptTokens. Never negative.
func RemainingContext(modelName string, reservedForOutput, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HeadroomTokens is the larger of 5% of the context window and 512 tokens,
// covering tokenizer and message framing error.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// RemainingContextWithHeadroom is RemainingContext with HeadroomTokens added
// to the output reservation.
func RemainingContextWithHeadroom(modelName string, reservedForOutput, promptTokens int) int {
	return RemainingContext(modelName, reservedForOutput+HeadroomTokens(modelName), promptTokens)
}
