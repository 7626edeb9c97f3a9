package domain

import (
	"regexp"
	"strings"
)

// =============================================================================
// Slug Normalization
// =============================================================================

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Slugify converts a title to a URL and directory safe slug.
//
// The transformation rules are:
//   - ASCII letters are lowercased
//   - Digits are kept as-is
//   - Every maximal run of any other characters becomes a single hyphen
//   - Leading and trailing hyphens are trimmed
//
// This is a pure function with no side effects. It returns "" when the
// title has no ASCII letters or digits.
//
// Example:
//
//	Slugify("is Make me")      // returns "is-make-me"
//	Slugify("BULDMEA")         // returns "buldmea"
//	Slugify("My App 2.0!")     // returns "my-app-2-0"
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for i := 0; i < len(title); i++ {
		c := title[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		default:
			pendingHyphen = true
			continue
		}
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteByte(c)
	}
	return b.String()
}

// NormalizeSlug returns the candidate slug for a raw title.
// Returns ErrInvalidTitle if nothing slug-worthy is left.
func NormalizeSlug(rawTitle string) (string, error) {
	slug := Slugify(rawTitle)
	if slug == "" {
		return "", ErrInvalidTitle
	}
	return slug, nil
}

// ValidateSlug checks that a slug is already in canonical form.
func ValidateSlug(slug string) error {
	if !slugRegex.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}
