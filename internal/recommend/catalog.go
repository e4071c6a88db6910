// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// catalogSchemaJSON is the JSON Schema every catalog document must
// satisfy before indexing. The engine only requires id to exist; other
// fields pass through to the presentation layer.
const catalogSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["products"],
  "properties": {
    "products": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string"},
          "description": {"type": "string"},
          "purchase_url": {"type": "string"},
          "created_at": {"type": "string", "format": "date-time"}
        }
      }
    }
  }
}`

// catalogSchema is the compiled catalog schema.
var catalogSchema *jsonschema.Schema

// schemaPrinter formats schema validation error messages.
var schemaPrinter = message.NewPrinter(language.English)

//nolint:gochecknoinits // compiling the embedded schema once at startup
func init() {
	var doc any
	if err := json.Unmarshal([]byte(catalogSchemaJSON), &doc); err != nil {
		panic(fmt.Sprintf("parse embedded catalog schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.schema.json", doc); err != nil {
		panic(fmt.Sprintf("add catalog schema resource: %v", err))
	}
	sch, err := compiler.Compile("catalog.schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile catalog schema: %v", err))
	}
	catalogSchema = sch
}

// catalogDoc is the JSON shape of the catalog source.
type catalogDoc struct {
	Products []Product `json:"products"`
}

// ParseCatalog decodes and validates a catalog document, returning the
// in-memory index keyed by product id.
func ParseCatalog(raw []byte) (map[string]Product, error) {
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if errs := validateCatalogSchema(instance); len(errs) > 0 {
		return nil, errs
	}

	var doc catalogDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var errs ValidationErrors
	index := make(map[string]Product, len(doc.Products))
	for _, p := range doc.Products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			errs = append(errs, ValidationError{Field: "products", Message: "product id must be a non-empty string"})
			continue
		}
		if _, dup := index[id]; dup {
			errs = append(errs, ValidationError{ProductID: id, Field: "products", Message: "duplicate product id"})
			continue
		}
		p.ID = id
		index[id] = p
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return index, nil
}

// validateCatalogSchema checks the decoded document against the embedded
// schema and flattens the cause tree into ValidationErrors.
func validateCatalogSchema(instance any) ValidationErrors {
	err := catalogSchema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return ValidationErrors{{Field: "catalog", Message: err.Error()}}
	}
	var errs ValidationErrors
	collectSchemaCauses(ve, &errs)
	return errs
}

func collectSchemaCauses(ve *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, ValidationError{
			Field:   "catalog" + loc,
			Message: ve.ErrorKind.LocalizedString(schemaPrinter),
		})
		return
	}
	for _, c := range ve.Causes {
		collectSchemaCauses(c, errs)
	}
}
