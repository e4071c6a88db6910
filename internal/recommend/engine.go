// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine scores recommendation requests against an immutable snapshot of
// ontology, catalog and rules. Readers never lock; reloads build a new
// snapshot aside and swap it atomically.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]

	// reloadMu serializes reloads. It is never taken on the read path.
	reloadMu sync.Mutex

	logger zerolog.Logger

	// now is injectable for freshness tests.
	now func() time.Time
}

// NewEngine creates an engine serving the given snapshot.
func NewEngine(snap *Snapshot, logger zerolog.Logger) (*Engine, error) {
	if snap == nil {
		return nil, errors.New("recommend: snapshot is required")
	}
	e := &Engine{
		logger: logger.With().Str("component", "recommend").Logger(),
		now:    time.Now,
	}
	e.snapshot.Store(snap)
	e.logger.Info().
		Int("rules", len(snap.Rules)).
		Int("products", len(snap.Catalog)).
		Int("tags", len(snap.Ontology)).
		Msg("Recommendation engine initialized")
	return e, nil
}

// BuildSnapshot parses and cross-validates the three source documents
// into an immutable snapshot. Validation problems across all documents
// are collected; a partial snapshot is never returned.
func BuildSnapshot(ontologyRaw, catalogRaw, rulesRaw []byte) (*Snapshot, error) {
	ontology, err := ParseOntology(ontologyRaw)
	if err != nil {
		return nil, fmt.Errorf("ontology: %w", err)
	}
	catalog, err := ParseCatalog(catalogRaw)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	rules, err := ParseRules(rulesRaw, ontology, catalog)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return &Snapshot{
		Ontology: ontology,
		Catalog:  catalog,
		Rules:    rules,
		LoadedAt: time.Now().UTC(),
	}, nil
}

// Validate dry-runs rule parsing against an already-loaded ontology and
// catalog, returning every problem found. Used by offline tooling and the
// validation endpoint; never touches the serving snapshot.
func Validate(rulesRaw []byte, ontology map[string]Tag, catalog map[string]Product) []ValidationError {
	rules, err := ParseRules(rulesRaw, ontology, catalog)
	if err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			return verrs
		}
		return []ValidationError{{Field: "rules", Message: err.Error()}}
	}
	return checkWeightSums(rules)
}

// Snapshot returns the currently serving snapshot. The returned value is
// immutable and safe to read without synchronization.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Reload builds a fully validated snapshot from the given documents and
// swaps it in atomically. On any validation failure the previous snapshot
// keeps serving and the error lists every problem found. In-flight
// requests are never blocked and finish against the snapshot they
// captured.
func (e *Engine) Reload(ontologyRaw, catalogRaw, rulesRaw []byte) error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	snap, err := BuildSnapshot(ontologyRaw, catalogRaw, rulesRaw)
	if err != nil {
		e.logger.Error().Err(err).Msg("Reload rejected, previous snapshot retained")
		return err
	}

	e.snapshot.Store(snap)
	e.logger.Info().
		Int("rules", len(snap.Rules)).
		Int("products", len(snap.Catalog)).
		Int("tags", len(snap.Ontology)).
		Time("loaded_at", snap.LoadedAt).
		Msg("Snapshot reloaded")
	return nil
}

// Recommend scores the request against the current snapshot and returns
// the ranked result. An empty card list is a valid outcome. The only
// error condition is a malformed request (RequestError).
func (e *Engine) Recommend(req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	snap := e.snapshot.Load()
	now := e.now()

	tags := NewTagSet(req.Tags)
	attrs := NewTagSet(req.AudienceAttributes)
	allergens := NewTagSet(req.Allergens)

	// Best rule per product. Exclusion is product-level: one excluded
	// rule removes the product no matter what other rules score.
	best := make(map[string]Rule, len(snap.Rules))
	bestScore := make(map[string]float64, len(snap.Rules))
	excludedBy := make(map[string]string)

	for _, rule := range snap.Rules {
		if reason, banned := excludedReason(rule, tags, allergens); banned {
			if _, seen := excludedBy[rule.ProductID]; !seen {
				excludedBy[rule.ProductID] = reason
			}
			continue
		}
		score := effectiveScore(rule, tags, attrs, now)
		if prev, ok := bestScore[rule.ProductID]; !ok || score > prev {
			best[rule.ProductID] = rule
			bestScore[rule.ProductID] = score
		}
	}

	cards := make([]Card, 0, len(best))
	for productID, rule := range best {
		if _, banned := excludedBy[productID]; banned {
			continue
		}
		score := bestScore[productID]
		if score < rule.Threshold || score <= 0 {
			continue
		}
		card := Card{
			ProductID: productID,
			Product:   snap.Catalog[productID],
			Score:     score,
		}
		if req.IncludeExplain {
			card.Explanation, card.Sources = explain(rule, tags, attrs, now, snap.Ontology)
		}
		cards = append(cards, card)
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Score != cards[j].Score {
			return cards[i].Score > cards[j].Score
		}
		return cards[i].ProductID < cards[j].ProductID
	})
	if req.Limit > 0 && len(cards) > req.Limit {
		cards = cards[:req.Limit]
	}

	result := &Result{Cards: cards}
	for productID, reason := range excludedBy {
		result.Excluded = append(result.Excluded, Exclusion{ProductID: productID, Reason: reason})
	}
	sort.Slice(result.Excluded, func(i, j int) bool {
		return result.Excluded[i].ProductID < result.Excluded[j].ProductID
	})

	return result, nil
}

// validateRequest rejects malformed requests before any scoring work.
// Unknown tags are deliberately not an error: producers evolve faster
// than the ontology and stale tags must stay inert.
func validateRequest(req Request) error {
	if req.Limit < 0 {
		return &RequestError{Field: "limit", Message: "limit must not be negative"}
	}
	for _, tag := range req.Tags {
		if len(tag) > maxIdentifierLen {
			return &RequestError{Field: "tags", Message: "tag identifiers must be at most 256 characters"}
		}
	}
	return nil
}

// maxIdentifierLen bounds request identifiers so a hostile payload cannot
// bloat log lines or store keys.
const maxIdentifierLen = 256

// explain builds the per-tag contribution breakdown for a winning rule.
// Each contribution is the tag's share of the final score, so the entries
// sum to the card score. Sources is the union of the ontology sources of
// the matched tags.
func explain(rule Rule, tags TagSet, attrs AttrSet, now time.Time, ontology map[string]Tag) ([]Contribution, []string) {
	multiplier := AudienceMultiplier(rule, attrs) * FreshnessFactor(rule, now)

	var contributions []Contribution
	sources := make(map[string]struct{})
	for _, tagID := range sortedTagIDs(rule.Match) {
		if !tags.Contains(tagID) {
			continue
		}
		weight := rule.Match[tagID]
		contributions = append(contributions, Contribution{
			TagID:        tagID,
			Weight:       weight,
			Contribution: weight * multiplier,
		})
		if def, ok := ontology[tagID]; ok {
			for _, src := range def.Sources {
				sources[src] = struct{}{}
			}
		}
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].Contribution > contributions[j].Contribution
	})

	var sourceList []string
	if len(sources) > 0 {
		sourceList = make([]string, 0, len(sources))
		for src := range sources {
			sourceList = append(sourceList, src)
		}
		sort.Strings(sourceList)
	}
	return contributions, sourceList
}
