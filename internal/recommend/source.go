// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"fmt"
	"os"
)

// FileSource reads the three source documents from disk. Used at startup
// and by reload triggers (API and scheduler).
type FileSource struct {
	OntologyPath string
	CatalogPath  string
	RulesPath    string
}

// Read returns the raw ontology, catalog and rule documents.
func (s FileSource) Read() (ontology, catalog, rules []byte, err error) {
	ontology, err = os.ReadFile(s.OntologyPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read ontology: %w", err)
	}
	catalog, err = os.ReadFile(s.CatalogPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read catalog: %w", err)
	}
	rules, err = os.ReadFile(s.RulesPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read rules: %w", err)
	}
	return ontology, catalog, rules, nil
}

// Load builds a snapshot straight from the source files.
func (s FileSource) Load() (*Snapshot, error) {
	ontology, catalog, rules, err := s.Read()
	if err != nil {
		return nil, err
	}
	return BuildSnapshot(ontology, catalog, rules)
}
