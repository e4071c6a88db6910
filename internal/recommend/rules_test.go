// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"errors"
	"strings"
	"testing"
)

func testOntology() map[string]Tag {
	return map[string]Tag{
		"energy": {ID: "energy", Title: "Energy", Group: "vitality", Sources: []string{"quiz_energy"}},
		"sleep":  {ID: "sleep", Title: "Sleep", Group: "vitality", Sources: []string{"quiz_sleep"}},
		"stress": {ID: "stress", Title: "Stress", Group: "mind"},
	}
}

func testCatalog() map[string]Product {
	return map[string]Product{
		"magnesium-complex": {ID: "magnesium-complex", Title: "Magnesium Complex"},
		"sleep-blend":       {ID: "sleep-blend", Title: "Sleep Blend"},
		"protein-bar":       {ID: "protein-bar", Title: "Protein Bar"},
		"calm-tea":          {ID: "calm-tea", Title: "Calm Tea"},
	}
}

func TestParseRulesValid(t *testing.T) {
	t.Parallel()

	raw := []byte(`
products:
  - product: magnesium-complex
    match:
      tags:
        energy: 0.7
        sleep: 0.3
      threshold: 0.5
  - product: sleep-blend
    match:
      tags:
        sleep: 2
        stress: 2
    audience:
      - mode: all
        conditions: [vegan, athlete]
        multiplier: 1.5
    freshness:
      base: 1.0
      decay_days: 30
      since: 2026-01-01T00:00:00Z
    exclude_tags: [caffeine_sensitive]
    exclude_allergens: [soy]
`)

	rules, err := ParseRules(raw, testOntology(), testCatalog())
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}

	first := rules[0]
	if first.ProductID != "magnesium-complex" {
		t.Errorf("ProductID = %q", first.ProductID)
	}
	if !almostEqual(first.Match["energy"], 0.7) || !almostEqual(first.Match["sleep"], 0.3) {
		t.Errorf("weights not preserved: %v", first.Match)
	}
	if first.Threshold != 0.5 {
		t.Errorf("Threshold = %v, want 0.5", first.Threshold)
	}

	// Equal raw weights normalize to equal shares summing to 1.
	second := rules[1]
	if !almostEqual(second.Match["sleep"], 0.5) || !almostEqual(second.Match["stress"], 0.5) {
		t.Errorf("normalized weights = %v, want 0.5 each", second.Match)
	}
	if len(second.Audience) != 1 || second.Audience[0].Mode != AudienceAll || second.Audience[0].Multiplier != 1.5 {
		t.Errorf("audience not parsed: %+v", second.Audience)
	}
	if second.Freshness == nil || second.Freshness.DecayDays != 30 {
		t.Errorf("freshness not parsed: %+v", second.Freshness)
	}
	if len(second.ExcludeTags) != 1 || second.ExcludeTags[0] != "caffeine_sensitive" {
		t.Errorf("exclude_tags = %v", second.ExcludeTags)
	}

	if errs := checkWeightSums(rules); len(errs) != 0 {
		t.Errorf("checkWeightSums() = %v, want none", errs)
	}
}

func TestParseRulesQuotedNumbers(t *testing.T) {
	t.Parallel()

	raw := []byte(`
products:
  - product: magnesium-complex
    match:
      tags:
        energy: "0.7"
        sleep: "0.3"
      threshold: "0.5"
`)

	rules, err := ParseRules(raw, testOntology(), testCatalog())
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	if !almostEqual(rules[0].Match["energy"], 0.7) {
		t.Errorf("quoted weight not coerced: %v", rules[0].Match)
	}
	if rules[0].Threshold != 0.5 {
		t.Errorf("quoted threshold not coerced: %v", rules[0].Threshold)
	}
}

func TestParseRulesCollectsAllErrors(t *testing.T) {
	t.Parallel()

	raw := []byte(`
products:
  - product: ghost-product
    match:
      tags:
        energy: 0.7
        phantom_tag: 0.3
      threshold: 1.5
  - product: magnesium-complex
    match:
      tags:
        energy: -1
    audience:
      - mode: sometimes
        conditions: []
        multiplier: 0
  - product: sleep-blend
    match:
      tags:
        sleep: 1.0
    freshness:
      base: -2
      decay_days: 0
`)

	_, err := ParseRules(raw, testOntology(), testCatalog())
	if err == nil {
		t.Fatal("ParseRules() succeeded on invalid input")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}

	wantSubstrings := []string{
		"not present in the catalog",
		"not present in the ontology",
		"threshold must be between 0 and 1",
		"weight must be positive",
		"unknown audience mode",
		"conditions must be a non-empty list",
		"multiplier must be positive",
		"base must be positive",
		"decay_days must be positive",
		"since is required",
	}
	joined := verrs.Error()
	for _, want := range wantSubstrings {
		if !strings.Contains(joined, want) {
			t.Errorf("collected errors missing %q in: %s", want, joined)
		}
	}
	if len(verrs) < len(wantSubstrings) {
		t.Errorf("got %d errors, want at least %d", len(verrs), len(wantSubstrings))
	}
}

func TestParseRulesEmptyDocument(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "products: []", "unrelated: true"} {
		if _, err := ParseRules([]byte(raw), testOntology(), testCatalog()); err == nil {
			t.Errorf("ParseRules(%q) succeeded, want error", raw)
		}
	}
}

func TestParseRulesAllowsMultipleRulesPerProduct(t *testing.T) {
	t.Parallel()

	raw := []byte(`
products:
  - product: magnesium-complex
    match:
      tags:
        energy: 1.0
  - product: magnesium-complex
    match:
      tags:
        sleep: 1.0
`)

	rules, err := ParseRules(raw, testOntology(), testCatalog())
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
}

func TestParseOntology(t *testing.T) {
	t.Parallel()

	raw := []byte(`
tags:
  energy:
    title: Energy
    description: Low daytime energy
    group: vitality
    sources: [quiz_energy, quiz_energy, " calc_bmr "]
  bare_tag: {}
`)

	tags, err := ParseOntology(raw)
	if err != nil {
		t.Fatalf("ParseOntology() error = %v", err)
	}

	energy := tags["energy"]
	if energy.Title != "Energy" || energy.Group != "vitality" {
		t.Errorf("energy = %+v", energy)
	}
	if len(energy.Sources) != 2 || energy.Sources[0] != "calc_bmr" || energy.Sources[1] != "quiz_energy" {
		t.Errorf("sources not deduped/sorted: %v", energy.Sources)
	}

	// Missing fields fall back to id and the default group.
	bare := tags["bare_tag"]
	if bare.Title != "bare_tag" || bare.Group != "general" {
		t.Errorf("bare tag defaults wrong: %+v", bare)
	}
}

func TestParseOntologyEmpty(t *testing.T) {
	t.Parallel()

	if _, err := ParseOntology([]byte("tags: {}")); err == nil {
		t.Error("ParseOntology() succeeded on empty mapping")
	}
}

func TestParseCatalog(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"products": [
			{"id": "magnesium-complex", "title": "Magnesium Complex", "purchase_url": "https://shop.example/mg"},
			{"id": "sleep-blend", "title": "Sleep Blend", "created_at": "2026-01-02T15:04:05Z"}
		]
	}`)

	catalog, err := ParseCatalog(raw)
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("got %d products, want 2", len(catalog))
	}
	if catalog["sleep-blend"].CreatedAt.IsZero() {
		t.Error("created_at not decoded")
	}
}

func TestParseCatalogSchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing products key", raw: `{}`},
		{name: "product without id", raw: `{"products": [{"title": "No ID"}]}`},
		{name: "empty id", raw: `{"products": [{"id": ""}]}`},
		{name: "wrong type", raw: `{"products": {"id": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseCatalog([]byte(tt.raw))
			if err == nil {
				t.Fatal("ParseCatalog() succeeded, want schema error")
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error type = %T, want ValidationErrors", err)
			}
		})
	}
}

func TestParseCatalogDuplicateID(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"products": [{"id": "dup"}, {"id": "dup"}]}`)
	_, err := ParseCatalog(raw)
	if err == nil || !strings.Contains(err.Error(), "duplicate product id") {
		t.Errorf("ParseCatalog() error = %v, want duplicate id error", err)
	}
}
