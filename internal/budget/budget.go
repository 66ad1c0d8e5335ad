// Package budget estimates prompt sizes against model context windows so the
// remediation prompt can be trimmed before it is sent.
package budget

import (
	"math"
	"strings"
)

// EstimateTokens approximates the token count of s at four characters per
// token, rounding up.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}

// ModelContextTokens returns the context window of model. Unknown models get
// a conservative 8192.
func ModelContextTokens(model string) int {
	name := strings.ToLower(strings.TrimSpace(model))
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	for _, s := range sizeSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return 8192
}

// Headroom is the safety margin kept free of prompt text: 5% of the context
// with a floor of 512 tokens.
func Headroom(model string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(model)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// Remaining is the prompt budget left for model after reserving output
// tokens, the headroom and used tokens. It is never negative.
func Remaining(model string, reservedForOutput, used int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	left := ModelContextTokens(model) - Headroom(model) - reservedForOutput - used
	if left < 0 {
		return 0
	}
	return left
}

// FitLines returns the longest prefix of lines whose combined estimate, one
// newline per line included, stays within budget tokens.
func FitLines(lines []string, budget int) []string {
	used := 0
	for i, l := range lines {
		used += EstimateTokens(l + "\n")
		if used > budget {
			return lines[:i]
		}
	}
	return lines
}

var sizeSuffixes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"512k", 512_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
}

var knownModelMax = map[string]int{
	"gpt-4o":             128_000,
	"gpt-4o-mini":        128_000,
	"gpt-4-turbo":        128_000,
	"gpt-4.1":            1_000_000,
	"gpt-4.1-mini":       1_000_000,
	"gpt-3.5-turbo":      16_384,
	"llama-3":            8_192,
	"llama-3.1":          128_000,
	"openai/gpt-oss-20b": 4_096,
	"gpt-oss-20b":        4_096,
}
