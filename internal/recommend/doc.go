// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

// Package recommend implements a rule-based recommendation engine driven by
// behavioral tags.
//
// # Architecture
//
// A request carries a set of tag identifiers collected from upstream
// producers (quizzes, calculators, profile import). The engine evaluates
// every product rule in the active snapshot against the request:
//
//   - Matching Scorer: weighted tag overlap, normalized to [0, 1]
//   - Audience Resolver: conditional score multipliers (any/all semantics)
//   - Freshness Decay: exponential half-life decay of rule relevance
//   - Exclusion Filter: hard tag/allergen exclusions, checked before threshold
//   - Ranker: per-product maximum across rules, inclusive threshold,
//     deterministic ordering (score descending, product id ascending)
//
// # Snapshots
//
// Ontology, catalog and rules are bundled into an immutable Snapshot held
// behind an atomic pointer. Readers capture the pointer once and score
// against it without locking. Reload builds and fully validates a new
// snapshot off to the side and swaps it in atomically; a failed reload
// leaves the last-known-good snapshot serving.
//
// # Validation
//
// Rule documents are loosely typed (human-edited YAML). Loading coerces,
// normalizes and validates them into strongly typed immutable Rule values
// once; validation failures are collected into a ValidationErrors list so
// operators can fix every problem in one pass.
//
// # Usage
//
//	snap, err := recommend.BuildSnapshot(ontologyRaw, catalogRaw, rulesRaw)
//	engine, err := recommend.NewEngine(snap, logger)
//
//	result, err := engine.Recommend(recommend.Request{
//	    Tags:           []string{"energy", "sleep"},
//	    IncludeExplain: true,
//	})
//
// # Thread Safety
//
// Recommend never blocks and may be called from any number of goroutines.
// Reload is serialized against concurrent reloads but never blocks readers.
package recommend
