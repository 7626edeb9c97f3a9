package domain

import "strconv"

// =============================================================================
// Collision Resolution
// =============================================================================

// ResolveSlug returns candidate if it is not taken, otherwise candidate with
// the smallest free numeric suffix starting at -2.
//
// existing is the registry key set. A duplicate in it means the registry
// invariant is already broken and ErrRegistryCorruption is returned.
//
// Example:
//
//	ResolveSlug("blog", []string{"blog", "blog-2"}) // returns "blog-3"
func ResolveSlug(candidate string, existing []string) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, slug := range existing {
		if _, dup := taken[slug]; dup {
			return "", ErrRegistryCorruption
		}
		taken[slug] = struct{}{}
	}

	if _, ok := taken[candidate]; !ok {
		return candidate, nil
	}
	// Terminates: at most len(existing) suffixes can be taken.
	for n := 2; ; n++ {
		slug := candidate + "-" + strconv.Itoa(n)
		if _, ok := taken[slug]; !ok {
			return slug, nil
		}
	}
}
