// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

// Package main is the rulelint CLI. It validates a tag ontology, product
// catalog and rule map offline, reporting every problem in a single
// pass, so operators can lint documents in CI before shipping them to a
// running server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tagreco/tagreco/internal/recommend"
)

var (
	flagOntology string
	flagCatalog  string
	flagRules    string
	flagJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "rulelint",
	Short: "Validate Tagreco source documents",
	Long: `Validate a tag ontology, product catalog and tag-to-product rule map.

All three documents are parsed and cross-checked the same way the server
does at startup: rules must reference known tags and catalog products,
weights must be positive, thresholds must lie in [0, 1] and freshness
blocks must be complete. Every problem is reported, not just the first.

Examples:
  rulelint --ontology tag_ontology.yaml --catalog catalog.json --rules tag_product_map.yaml
  rulelint -o tag_ontology.yaml -c catalog.json -r tag_product_map.yaml --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagOntology, "ontology", "o", "", "path to the tag ontology YAML (required)")
	rootCmd.Flags().StringVarP(&flagCatalog, "catalog", "c", "", "path to the product catalog JSON (required)")
	rootCmd.Flags().StringVarP(&flagRules, "rules", "r", "", "path to the tag-to-product rule map YAML (required)")
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "emit findings as JSON")

	_ = rootCmd.MarkFlagRequired("ontology")
	_ = rootCmd.MarkFlagRequired("catalog")
	_ = rootCmd.MarkFlagRequired("rules")
}

// lintReport is the --json output shape.
type lintReport struct {
	Valid  bool                        `json:"valid"`
	Errors []recommend.ValidationError `json:"errors"`
}

func run(cmd *cobra.Command) error {
	source := recommend.FileSource{
		OntologyPath: flagOntology,
		CatalogPath:  flagCatalog,
		RulesPath:    flagRules,
	}
	ontologyRaw, catalogRaw, rulesRaw, err := source.Read()
	if err != nil {
		return err
	}

	errs := lint(ontologyRaw, catalogRaw, rulesRaw)

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		report := lintReport{Valid: len(errs) == 0, Errors: errs}
		if report.Errors == nil {
			report.Errors = []recommend.ValidationError{}
		}
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, e := range errs {
			fmt.Fprintln(cmd.OutOrStdout(), e.Error())
		}
		if len(errs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d validation error(s)", len(errs))
	}
	return nil
}

// lint parses all three documents, collecting every problem rather than
// stopping at the first bad document.
func lint(ontologyRaw, catalogRaw, rulesRaw []byte) []recommend.ValidationError {
	var errs []recommend.ValidationError

	ontology, err := recommend.ParseOntology(ontologyRaw)
	if err != nil {
		errs = append(errs, collectErrors("ontology", err)...)
	}
	catalog, err := recommend.ParseCatalog(catalogRaw)
	if err != nil {
		errs = append(errs, collectErrors("catalog", err)...)
	}
	// Rule cross-checks need both documents; with either missing the
	// reference errors would be noise.
	if ontology != nil && catalog != nil {
		errs = append(errs, recommend.Validate(rulesRaw, ontology, catalog)...)
	}
	return errs
}

// collectErrors flattens a parse error into validation errors, tagging
// plain errors with the document name.
func collectErrors(doc string, err error) []recommend.ValidationError {
	var verrs recommend.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return []recommend.ValidationError{{Field: doc, Message: err.Error()}}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
