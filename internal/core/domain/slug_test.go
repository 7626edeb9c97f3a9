package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Slugify Tests
// =============================================================================

func TestSlugify_MultipleWords(t *testing.T) {
	assert.Equal(t, "is-make-me", Slugify("is Make me"))
}

func TestSlugify_AllCaps(t *testing.T) {
	assert.Equal(t, "buldmea", Slugify("BULDMEA"))
}

func TestSlugify_MixedCase(t *testing.T) {
	assert.Equal(t, "build-me-a", Slugify("BUILD me a"))
}

func TestSlugify_Apostrophe(t *testing.T) {
	assert.Equal(t, "don-t-stop", Slugify("Don't stop"))
}

func TestSlugify_CollapsesSeparatorRuns(t *testing.T) {
	assert.Equal(t, "build-me-a-website", Slugify("build  me -- a...website"))
}

func TestSlugify_TrimsSeparators(t *testing.T) {
	assert.Equal(t, "trim-me", Slugify("  --trim me!!  "))
}

func TestSlugify_KeepsDigits(t *testing.T) {
	assert.Equal(t, "my-app-2-0", Slugify("My App 2.0!"))
}

func TestSlugify_NonASCIIIsSeparator(t *testing.T) {
	assert.Equal(t, "caf-cr-me", Slugify("Café Crème"))
}

func TestSlugify_OnlyPunctuation(t *testing.T) {
	assert.Equal(t, "", Slugify("..."))
}

func TestSlugify_Empty(t *testing.T) {
	assert.Equal(t, "", Slugify(""))
}

func TestSlugify_OutputAlphabet(t *testing.T) {
	inputs := []string{
		"BULD ME A WEBSITE OF A LOG ANYLTICS TOOL...",
		"  hello\tworld\n",
		"a__b--c  d",
		"¿Qué pasa? 123",
		"x",
	}
	for _, in := range inputs {
		slug := Slugify(in)
		require.NotEmpty(t, slug, in)
		assert.NoError(t, ValidateSlug(slug), in)
	}
}

// =============================================================================
// NormalizeSlug Tests
// =============================================================================

func TestNormalizeSlug_Valid(t *testing.T) {
	slug, err := NormalizeSlug("BULD ME A WEBSITE OF A LOG ANYLTICS TOOL")
	require.NoError(t, err)
	assert.Equal(t, "buld-me-a-website-of-a-log-anyltics-tool", slug)
}

func TestNormalizeSlug_OnlyPunctuation(t *testing.T) {
	_, err := NormalizeSlug("...")
	assert.ErrorIs(t, err, ErrInvalidTitle)
}

func TestNormalizeSlug_Whitespace(t *testing.T) {
	_, err := NormalizeSlug(" \t\n ")
	assert.ErrorIs(t, err, ErrInvalidTitle)
}

// =============================================================================
// ValidateSlug Tests
// =============================================================================

func TestValidateSlug_Canonical(t *testing.T) {
	assert.NoError(t, ValidateSlug("log-tool-2"))
}

func TestValidateSlug_Rejects(t *testing.T) {
	for _, slug := range []string{"", "-a", "a-", "a--b", "A", "a b", "a_b"} {
		assert.ErrorIs(t, ValidateSlug(slug), ErrInvalidSlug, slug)
	}
}
