package domain

import (
	"strings"
	"time"
)

// =============================================================================
// Record Builder
// =============================================================================

// BuildOptions tunes BuildRecord.
type BuildOptions struct {
	// DescriptionBudget is the description length budget in characters.
	// Zero means DefaultDescriptionBudget.
	DescriptionBudget int

	// Now returns the creation timestamp. Defaults to time.Now.
	Now func() time.Time

	// NewID returns the reference ID. Defaults to NewReferenceID.
	NewID func() string
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.DescriptionBudget <= 0 {
		o.DescriptionBudget = DefaultDescriptionBudget
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = NewReferenceID
	}
	return o
}

// BuildRecord composes a validated AppRecord from a raw request and the
// current registry snapshot. It does not insert anything: callers commit the
// record separately, which makes BuildRecord usable as a dry run.
func BuildRecord(req AppRequest, snap RegistrySnapshot, opts BuildOptions) (AppRecord, error) {
	opts = opts.withDefaults()

	title := strings.TrimSpace(req.Title)
	candidate, err := NormalizeSlug(title)
	if err != nil {
		return AppRecord{}, err
	}

	slug, err := ResolveSlug(candidate, snap.Slugs)
	if err != nil {
		return AppRecord{}, err
	}

	return AppRecord{
		Slug:        slug,
		Title:       title,
		Description: Bound(strings.TrimSpace(req.Description), opts.DescriptionBudget),
		Sequence:    snap.NextSequence(),
		ReferenceID: opts.NewID(),
		CreatedAt:   opts.Now().UTC(),
	}, nil
}
