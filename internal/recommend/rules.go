// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// weightSumTolerance bounds float drift when checking normalized weights.
const weightSumTolerance = 1e-9

// ruleDoc is the YAML shape of the rule source. Numeric fields are
// declared as any because the documents are human-edited and numbers
// frequently arrive quoted; spf13/cast coerces them before validation.
//
//	products:
//	  - product: magnesium-complex
//	    match:
//	      tags:
//	        energy: 0.7
//	        sleep: "0.3"
//	      threshold: 0.5
//	    audience:
//	      - mode: any
//	        conditions: [athlete]
//	        multiplier: 1.2
//	    freshness:
//	      base: 1.0
//	      decay_days: 30
//	      since: 2026-01-01T00:00:00Z
//	    exclude_tags: [caffeine_sensitive]
//	    exclude_allergens: [magnesium_stearate]
type ruleDoc struct {
	Products []rawRule `yaml:"products"`
}

type rawRule struct {
	Product          string         `yaml:"product"`
	Match            *rawMatch      `yaml:"match"`
	Audience         []rawAudience  `yaml:"audience"`
	Freshness        map[string]any `yaml:"freshness"`
	ExcludeTags      []string       `yaml:"exclude_tags"`
	ExcludeAllergens []string       `yaml:"exclude_allergens"`
}

type rawMatch struct {
	Tags      map[string]any `yaml:"tags"`
	Threshold any            `yaml:"threshold"`
}

type rawAudience struct {
	Mode       string   `yaml:"mode"`
	Conditions []string `yaml:"conditions"`
	Multiplier any      `yaml:"multiplier"`
}

// ParseRules decodes, coerces, validates and normalizes a rule document
// against the given ontology and catalog. All problems are collected into
// a single ValidationErrors list rather than failing on the first one.
// Multiple rules per product are allowed; the engine takes the best score.
func ParseRules(raw []byte, ontology map[string]Tag, catalog map[string]Product) ([]Rule, error) {
	var doc ruleDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(doc.Products) == 0 {
		return nil, ValidationErrors{{Field: "products", Message: "rule source must contain a non-empty 'products' list"}}
	}

	var errs ValidationErrors
	rules := make([]Rule, 0, len(doc.Products))
	for i, entry := range doc.Products {
		rule, ruleErrs := buildRule(i, entry, ontology, catalog)
		if len(ruleErrs) > 0 {
			errs = append(errs, ruleErrs...)
			continue
		}
		rules = append(rules, rule)
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return rules, nil
}

// buildRule validates a single raw entry and returns the normalized rule.
// A returned error list always means the rule is dropped.
func buildRule(idx int, entry rawRule, ontology map[string]Tag, catalog map[string]Product) (Rule, ValidationErrors) {
	var errs ValidationErrors

	productID := strings.TrimSpace(entry.Product)
	if productID == "" {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("products[%d].product", idx),
			Message: "product id must be a non-empty string",
		})
	} else if _, ok := catalog[productID]; !ok {
		errs = append(errs, ValidationError{
			ProductID: productID,
			Field:     "product",
			Message:   "product is not present in the catalog",
		})
	}

	match, threshold, matchErrs := buildMatch(entry.Match, ontology)
	for j := range matchErrs {
		matchErrs[j].ProductID = productID
	}
	errs = append(errs, matchErrs...)

	audience, audErrs := buildAudience(entry.Audience)
	for j := range audErrs {
		audErrs[j].ProductID = productID
	}
	errs = append(errs, audErrs...)

	freshness, freshErrs := buildFreshness(entry.Freshness)
	for j := range freshErrs {
		freshErrs[j].ProductID = productID
	}
	errs = append(errs, freshErrs...)

	if len(errs) > 0 {
		return Rule{}, errs
	}

	return Rule{
		ProductID:        productID,
		Match:            match,
		Threshold:        threshold,
		Audience:         audience,
		Freshness:        freshness,
		ExcludeTags:      cleanStringSet(entry.ExcludeTags),
		ExcludeAllergens: cleanStringSet(entry.ExcludeAllergens),
	}, nil
}

// buildMatch coerces and normalizes the match block. Weights are divided
// by their sum so every rule's weights sum to exactly 1.0.
func buildMatch(raw *rawMatch, ontology map[string]Tag) (map[string]float64, float64, ValidationErrors) {
	var errs ValidationErrors
	if raw == nil || len(raw.Tags) == 0 {
		return nil, 0, ValidationErrors{{Field: "match.tags", Message: "match.tags must be a non-empty mapping"}}
	}

	weights := make(map[string]float64, len(raw.Tags))
	sum := 0.0
	for key, value := range raw.Tags {
		tagID := strings.TrimSpace(key)
		if tagID == "" {
			errs = append(errs, ValidationError{Field: "match.tags", Message: "tag ids must be non-empty strings"})
			continue
		}
		if _, ok := ontology[tagID]; !ok {
			errs = append(errs, ValidationError{
				Field:   "match.tags." + tagID,
				Message: "tag is not present in the ontology",
			})
			continue
		}
		weight, err := cast.ToFloat64E(value)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "match.tags." + tagID,
				Message: "weight must be numeric",
			})
			continue
		}
		if weight <= 0 {
			errs = append(errs, ValidationError{
				Field:   "match.tags." + tagID,
				Message: "weight must be positive",
			})
			continue
		}
		weights[tagID] = weight
		sum += weight
	}

	if len(errs) == 0 && sum <= 0 {
		errs = append(errs, ValidationError{Field: "match.tags", Message: "weights must sum to a positive value"})
	}

	threshold := 0.0
	if raw.Threshold != nil {
		t, err := cast.ToFloat64E(raw.Threshold)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Field: "match.threshold", Message: "threshold must be numeric"})
		case t < 0 || t > 1:
			errs = append(errs, ValidationError{Field: "match.threshold", Message: "threshold must be between 0 and 1"})
		default:
			threshold = t
		}
	}

	if len(errs) > 0 {
		return nil, 0, errs
	}

	for tagID, weight := range weights {
		weights[tagID] = weight / sum
	}
	return weights, threshold, nil
}

// buildAudience coerces and validates the audience list, preserving
// declaration order. Multipliers apply multiplicatively at score time.
func buildAudience(raw []rawAudience) ([]AudienceRule, ValidationErrors) {
	if len(raw) == 0 {
		return nil, nil
	}

	var errs ValidationErrors
	rules := make([]AudienceRule, 0, len(raw))
	for i, entry := range raw {
		field := fmt.Sprintf("audience[%d]", i)

		mode, ok := ParseAudienceMode(entry.Mode)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".mode",
				Message: fmt.Sprintf("unknown audience mode %q, expected 'any' or 'all'", entry.Mode),
			})
		}

		conditions := cleanStringSet(entry.Conditions)
		if len(conditions) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".conditions",
				Message: "audience conditions must be a non-empty list",
			})
		}

		multiplier, err := cast.ToFloat64E(entry.Multiplier)
		switch {
		case entry.Multiplier == nil:
			errs = append(errs, ValidationError{Field: field + ".multiplier", Message: "audience multiplier is required"})
		case err != nil:
			errs = append(errs, ValidationError{Field: field + ".multiplier", Message: "audience multiplier must be numeric"})
		case multiplier <= 0:
			errs = append(errs, ValidationError{Field: field + ".multiplier", Message: "audience multiplier must be positive"})
		}

		rules = append(rules, AudienceRule{Mode: mode, Conditions: conditions, Multiplier: multiplier})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rules, nil
}

// buildFreshness coerces and validates an optional freshness block.
func buildFreshness(raw map[string]any) (*Freshness, ValidationErrors) {
	if len(raw) == 0 {
		return nil, nil
	}

	var errs ValidationErrors

	base := 1.0
	if v, ok := raw["base"]; ok {
		b, err := cast.ToFloat64E(v)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Field: "freshness.base", Message: "base must be numeric"})
		case b <= 0:
			errs = append(errs, ValidationError{Field: "freshness.base", Message: "base must be positive"})
		default:
			base = b
		}
	}

	decayDays, err := cast.ToFloat64E(raw["decay_days"])
	switch {
	case raw["decay_days"] == nil:
		errs = append(errs, ValidationError{Field: "freshness.decay_days", Message: "decay_days is required when freshness is set"})
	case err != nil:
		errs = append(errs, ValidationError{Field: "freshness.decay_days", Message: "decay_days must be numeric"})
	case decayDays <= 0:
		errs = append(errs, ValidationError{Field: "freshness.decay_days", Message: "decay_days must be positive"})
	}

	since, err := cast.ToTimeE(raw["since"])
	switch {
	case raw["since"] == nil:
		errs = append(errs, ValidationError{Field: "freshness.since", Message: "since is required when freshness is set"})
	case err != nil:
		errs = append(errs, ValidationError{Field: "freshness.since", Message: "since must be an RFC 3339 timestamp"})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &Freshness{Base: base, DecayDays: decayDays, Since: since.UTC()}, nil
}

// checkWeightSums verifies that every rule's normalized weights sum to
// 1.0 within tolerance. Exercised by offline tooling and tests.
func checkWeightSums(rules []Rule) ValidationErrors {
	var errs ValidationErrors
	for _, rule := range rules {
		sum := 0.0
		for _, w := range rule.Match {
			sum += w
		}
		if math.Abs(sum-1.0) > weightSumTolerance {
			errs = append(errs, ValidationError{
				ProductID: rule.ProductID,
				Field:     "match.tags",
				Message:   fmt.Sprintf("normalized weights sum to %.12f, expected 1.0", sum),
			})
		}
	}
	return errs
}

// sortedTagIDs returns the rule's match tag ids in ascending order,
// giving explanations a deterministic iteration order.
func sortedTagIDs(match map[string]float64) []string {
	ids := make([]string, 0, len(match))
	for id := range match {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
