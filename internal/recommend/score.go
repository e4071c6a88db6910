// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"math"
	"time"
)

// Exclusion reasons reported in Result.Excluded.
const (
	ReasonTagExclusion = "tag_exclusion"
	ReasonAllergen     = "allergen"
)

const hoursPerDay = 24.0

// MatchScore returns the weighted overlap between the request tag set and
// the rule's normalized match weights. The result is in [0, 1]: 0 when no
// rule tag is present, 1 when all are.
func MatchScore(rule Rule, tags TagSet) float64 {
	score := 0.0
	for tagID, weight := range rule.Match {
		if tags.Contains(tagID) {
			score += weight
		}
	}
	return score
}

// AudienceMultiplier returns the combined multiplier of every satisfied
// audience rule, applied in declaration order. Audience rules only boost;
// an unsatisfied rule contributes a factor of 1.
func AudienceMultiplier(rule Rule, attrs AttrSet) float64 {
	m := 1.0
	for _, a := range rule.Audience {
		if a.Matches(attrs) {
			m *= a.Multiplier
		}
	}
	return m
}

// FreshnessFactor returns the exponential decay factor for a rule at the
// given instant: base * 0.5^(age_days / decay_days). A rule without a
// freshness block decays at factor 1. Negative age clamps to zero so
// future-dated rules are treated as brand new, never boosted.
func FreshnessFactor(rule Rule, now time.Time) float64 {
	f := rule.Freshness
	if f == nil {
		return 1.0
	}
	ageDays := now.Sub(f.Since).Hours() / hoursPerDay
	if ageDays < 0 {
		ageDays = 0
	}
	return f.Base * math.Pow(0.5, ageDays/f.DecayDays)
}

// excludedReason reports whether the rule hard-excludes the request, and
// the reason. Exclusion is checked before the threshold so an excluded
// product never appears regardless of score. Tag exclusion takes
// precedence over allergen exclusion when both apply.
func excludedReason(rule Rule, tags, allergens TagSet) (string, bool) {
	if tags.Intersects(rule.ExcludeTags) {
		return ReasonTagExclusion, true
	}
	if allergens.Intersects(rule.ExcludeAllergens) {
		return ReasonAllergen, true
	}
	return "", false
}

// effectiveScore runs the full per-rule pipeline: weighted match, then
// audience multipliers, then freshness decay.
func effectiveScore(rule Rule, tags TagSet, attrs AttrSet, now time.Time) float64 {
	return MatchScore(rule, tags) * AudienceMultiplier(rule, attrs) * FreshnessFactor(rule, now)
}
