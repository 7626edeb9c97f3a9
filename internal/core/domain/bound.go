package domain

import (
	"fmt"
	"unicode/utf8"
)

// =============================================================================
// Text Bounding
// =============================================================================

// Bound returns text cut to at most maxChars characters.
//
// The cut is hard: no word-boundary search and no ellipsis. Characters are
// Unicode code points, so a cut never splits a UTF-8 sequence. A maxChars of
// zero or less returns "".
//
// Example:
//
//	Bound("Build me a log tool", 8) // returns "Build me"
func Bound(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if len(text) <= maxChars {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}

// CheckBound reports ErrTextBoundViolation if text is longer than maxChars.
// It is the contract check for fields that claim to be already bounded.
func CheckBound(text string, maxChars int) error {
	if n := utf8.RuneCountInString(text); n > maxChars {
		return fmt.Errorf("%w: %d characters, budget %d", ErrTextBoundViolation, n, maxChars)
	}
	return nil
}
