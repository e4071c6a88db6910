// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"sort"
	"strings"
	"time"
)

// Tag is a single entry of the tag ontology.
type Tag struct {
	// ID is the tag identifier referenced by rules and requests.
	ID string `json:"id"`

	// Title is the human-readable tag name.
	Title string `json:"title"`

	// Description explains what behavior or context the tag encodes.
	Description string `json:"description,omitempty"`

	// Group clusters related tags for authoring tools.
	Group string `json:"group"`

	// Sources lists the upstream producers known to emit this tag.
	Sources []string `json:"sources,omitempty"`
}

// Product is the minimal catalog record the engine needs. Richer
// presentation fields are owned by the catalog provider and pass through
// untouched.
type Product struct {
	// ID is the catalog product identifier.
	ID string `json:"id"`

	// Title is the display name.
	Title string `json:"title"`

	// Description is a short display description.
	Description string `json:"description,omitempty"`

	// PurchaseURL is the order link for the product.
	PurchaseURL string `json:"purchase_url,omitempty"`

	// CreatedAt is when the product entered the catalog.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// AudienceMode selects how audience conditions are combined.
type AudienceMode int

const (
	// AudienceAny applies the multiplier when at least one condition
	// attribute is present in the request.
	AudienceAny AudienceMode = iota
	// AudienceAll applies the multiplier only when every condition
	// attribute is present in the request.
	AudienceAll
)

// String returns a human-readable mode name.
func (m AudienceMode) String() string {
	switch m {
	case AudienceAny:
		return "any"
	case AudienceAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseAudienceMode converts a mode string from a rule document.
// An empty string defaults to AudienceAny.
func ParseAudienceMode(s string) (AudienceMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return AudienceAny, true
	case "all":
		return AudienceAll, true
	default:
		return AudienceAny, false
	}
}

// AudienceRule multiplies the score when its conditions are satisfied.
// Audience rules only boost; a request that does not satisfy the
// conditions keeps its unmodified score.
type AudienceRule struct {
	// Mode selects any/all combination of conditions.
	Mode AudienceMode `json:"mode"`

	// Conditions is the set of audience attributes the rule tests.
	Conditions []string `json:"conditions"`

	// Multiplier is applied to the score when the rule is satisfied.
	Multiplier float64 `json:"multiplier"`
}

// Matches reports whether the audience conditions are satisfied by the
// given attribute set. A rule with no conditions never matches.
func (a AudienceRule) Matches(attrs AttrSet) bool {
	if len(a.Conditions) == 0 {
		return false
	}
	switch a.Mode {
	case AudienceAll:
		for _, c := range a.Conditions {
			if _, ok := attrs[c]; !ok {
				return false
			}
		}
		return true
	default:
		for _, c := range a.Conditions {
			if _, ok := attrs[c]; ok {
				return true
			}
		}
		return false
	}
}

// Freshness controls exponential decay of a rule's contribution.
type Freshness struct {
	// Base scales the decay factor at age zero.
	Base float64 `json:"base"`

	// DecayDays is the half-life in days. Must be > 0.
	DecayDays float64 `json:"decay_days"`

	// Since is the rule's reference timestamp. Freshness describes rule
	// relevance, not the product record, so the timestamp is declared on
	// the rule itself.
	Since time.Time `json:"since"`
}

// Rule maps tag weights to a single product's eligibility and score.
// Rules are immutable after validation.
type Rule struct {
	// ProductID references a product in the catalog index.
	ProductID string `json:"product_id"`

	// Match maps tag ids to weights. Weights are normalized to sum to
	// 1.0 at load time.
	Match map[string]float64 `json:"match"`

	// Threshold is the minimum effective score for the product to be
	// recommended. The boundary is inclusive.
	Threshold float64 `json:"threshold"`

	// Audience holds zero or more conditional multipliers, applied
	// multiplicatively in declaration order.
	Audience []AudienceRule `json:"audience,omitempty"`

	// Freshness enables time decay when non-nil.
	Freshness *Freshness `json:"freshness,omitempty"`

	// ExcludeTags hard-excludes the product when any of these tags is
	// present in the request.
	ExcludeTags []string `json:"exclude_tags,omitempty"`

	// ExcludeAllergens hard-excludes the product when any of these
	// allergens is present in the request.
	ExcludeAllergens []string `json:"exclude_allergens,omitempty"`
}

// TagSet is a normalized set of identifiers (tags, attributes, allergens).
type TagSet map[string]struct{}

// AttrSet is an alias kept for call-site readability.
type AttrSet = TagSet

// NewTagSet builds a set from a slice, trimming whitespace and dropping
// empty entries.
func NewTagSet(items []string) TagSet {
	s := make(TagSet, len(items))
	for _, raw := range items {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		s[item] = struct{}{}
	}
	return s
}

// Contains reports set membership.
func (s TagSet) Contains(item string) bool {
	_, ok := s[item]
	return ok
}

// Intersects reports whether any of the given items is in the set.
func (s TagSet) Intersects(items []string) bool {
	for _, item := range items {
		if _, ok := s[item]; ok {
			return true
		}
	}
	return false
}

// Request is one recommendation call. Ephemeral, one per call.
type Request struct {
	// Tags is the behavioral tag set collected for the user. Tags absent
	// from the ontology are inert, not an error.
	Tags []string `json:"tags"`

	// AudienceAttributes are profile attributes tested by audience rules.
	AudienceAttributes []string `json:"audience_attributes,omitempty"`

	// Allergens are matched against rule allergen exclusions.
	Allergens []string `json:"allergens,omitempty"`

	// IncludeExplain attaches contribution breakdowns to each card.
	IncludeExplain bool `json:"include_explain,omitempty"`

	// Limit caps the number of returned cards. Zero means unlimited.
	Limit int `json:"limit,omitempty"`
}

// Contribution is one explanation entry: a tag that was present both in
// the winning rule's match map and in the request.
type Contribution struct {
	// TagID is the matched tag.
	TagID string `json:"tag_id"`

	// Weight is the normalized rule weight for the tag.
	Weight float64 `json:"weight"`

	// Contribution is the tag's share of the final score, including
	// audience and freshness multipliers.
	Contribution float64 `json:"contribution"`
}

// Card is one ranked recommendation.
type Card struct {
	// ProductID identifies the recommended product.
	ProductID string `json:"product_id"`

	// Product carries the catalog metadata for presentation.
	Product Product `json:"product"`

	// Score is the final effective score in [0, 1] before multipliers
	// above 1 are considered; audience boosts may push it higher.
	Score float64 `json:"score"`

	// Explanation lists per-tag contributions, descending, when
	// requested.
	Explanation []Contribution `json:"explanation,omitempty"`

	// Sources is the union of ontology sources for the matched tags,
	// sorted, when explanations are requested.
	Sources []string `json:"sources,omitempty"`
}

// Exclusion records a product dropped by a hard exclusion.
type Exclusion struct {
	// ProductID is the excluded product.
	ProductID string `json:"product_id"`

	// Reason is "tag_exclusion" or "allergen".
	Reason string `json:"reason"`
}

// Result is the ordered recommendation output. An empty Cards slice is a
// valid, non-error outcome.
type Result struct {
	// Cards is sorted by descending score, ties broken by ascending
	// product id.
	Cards []Card `json:"cards"`

	// Excluded lists products dropped by hard exclusions, sorted by
	// product id.
	Excluded []Exclusion `json:"excluded,omitempty"`
}

// Snapshot is an immutable bundle of ontology, catalog and rules served
// to a window of concurrent requests.
type Snapshot struct {
	// Ontology maps tag id to tag metadata.
	Ontology map[string]Tag

	// Catalog maps product id to product metadata.
	Catalog map[string]Product

	// Rules is the validated, normalized rule set.
	Rules []Rule

	// LoadedAt is when the snapshot was built.
	LoadedAt time.Time
}

// TagIDs returns the sorted tag identifiers of the ontology.
func (s *Snapshot) TagIDs() []string {
	ids := make([]string, 0, len(s.Ontology))
	for id := range s.Ontology {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ProductIDs returns the sorted product identifiers of the catalog.
func (s *Snapshot) ProductIDs() []string {
	ids := make([]string, 0, len(s.Catalog))
	for id := range s.Catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
