// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ontologyDoc is the YAML shape of the tag ontology source.
//
//	tags:
//	  energy:
//	    title: Energy
//	    description: Low daytime energy reported by the user
//	    group: vitality
//	    sources: [quiz_energy]
type ontologyDoc struct {
	Tags map[string]ontologyEntry `yaml:"tags"`
}

type ontologyEntry struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Group       string   `yaml:"group"`
	Sources     []string `yaml:"sources"`
}

// ParseOntology decodes and validates a tag ontology document. The
// returned map is keyed by tag id and immutable by convention: callers
// must not mutate it after handing it to a Snapshot.
func ParseOntology(raw []byte) (map[string]Tag, error) {
	var doc ontologyDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse ontology: %w", err)
	}
	if len(doc.Tags) == 0 {
		return nil, ValidationErrors{{Field: "tags", Message: "ontology must contain a non-empty 'tags' mapping"}}
	}

	var errs ValidationErrors
	tags := make(map[string]Tag, len(doc.Tags))
	for key, entry := range doc.Tags {
		id := strings.TrimSpace(key)
		if id == "" {
			errs = append(errs, ValidationError{Field: "tags", Message: "tag ids must be non-empty strings"})
			continue
		}

		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = id
		}
		group := strings.TrimSpace(entry.Group)
		if group == "" {
			group = "general"
		}

		tags[id] = Tag{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(entry.Description),
			Group:       group,
			Sources:     cleanStringSet(entry.Sources),
		}
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return tags, nil
}

// cleanStringSet trims, dedupes and sorts a string list. Returns nil for
// an effectively empty input so omitempty JSON encoding stays clean.
func cleanStringSet(items []string) []string {
	set := make(map[string]struct{}, len(items))
	for _, raw := range items {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
