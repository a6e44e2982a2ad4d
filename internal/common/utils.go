package common

import (
	"path/filepath"
	"strings"
)

// MatchesGlobPatterns checks if a value matches the given glob patterns.
// Empty patterns list means match all.
// Patterns support wildcards (* and ?).
// Patterns prefixed with ! are negations and exclude matching values.
// Negations are evaluated after positive matches.
func MatchesGlobPatterns(patterns []string, value string) bool {
	// No filter = include all
	if len(patterns) == 0 {
		return true
	}

	// Separate positive and negative patterns
	var positivePatterns, negativePatterns []string
	for _, pattern := range patterns {
		if after, ok := strings.CutPrefix(pattern, "!"); ok {
			negativePatterns = append(negativePatterns, after)
		} else {
			positivePatterns = append(positivePatterns, pattern)
		}
	}

	// Check positive matches (default to match all if no positive patterns)
	matched := len(positivePatterns) == 0
	for _, pattern := range positivePatterns {
		if m, _ := filepath.Match(pattern, value); m {
			matched = true
			break
		}
	}

	// If matched, check if any negation pattern excludes it
	if matched {
		for _, pattern := range negativePatterns {
			if m, _ := filepath.Match(pattern, value); m {
				matched = false
				break
			}
		}
	}

	return matched
}
