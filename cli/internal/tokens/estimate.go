// Package tokens estimates prompt size in tokens with a byte-based chars/4
// heuristic and converts token ceilings back to byte budgets, so prompt
// trimming and the configured ceiling agree on one unit.
package tokens

import (
	"fmt"
	"math"
)

// charsPerToken is the divisor for the simple byte-based estimator
// (roughly 4 bytes per token for typical English/code).
const charsPerToken = 4

// WarnThreshold is the fraction of the prompt ceiling at which a trace
// warning is emitted.
const WarnThreshold = 0.9

// Estimate returns an estimated token count for the given text.
// It uses (len(text)+3)/4 bytes, so 1–4 bytes map to 1 token, 5–8 to 2, etc.
// Empty string returns 0.
func Estimate(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// BytesFor returns the largest byte length whose estimate is at most n tokens.
// n <= 0 returns 0; results saturate at math.MaxInt.
func BytesFor(n int) int {
	if n <= 0 {
		return 0
	}
	if n > math.MaxInt/charsPerToken {
		return math.MaxInt
	}
	return n * charsPerToken
}

// NearCeiling returns a warning when promptTokens reaches threshold of
// ceiling, or "" otherwise. ceiling <= 0 means no ceiling.
func NearCeiling(promptTokens, ceiling int, threshold float64) string {
	if ceiling <= 0 || promptTokens < 0 {
		return ""
	}
	limit := float64(ceiling) * threshold
	at := int(limit)
	if limit > float64(at) {
		at++
	}
	if promptTokens < at {
		return ""
	}
	return fmt.Sprintf("estimated prompt tokens %d reach %.0f%% of the %d-token ceiling; the diff may have been trimmed",
		promptTokens, threshold*100, ceiling)
}
