// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package recommend

import (
	"fmt"
	"strings"
)

// ValidationError describes one load-time problem in a rule, ontology or
// catalog document. Validation errors are collected, never fail-fast, so
// operators can fix every problem in one pass.
type ValidationError struct {
	// ProductID is the rule's product, when the error is rule-scoped.
	ProductID string `json:"product_id,omitempty"`

	// Field is the offending field path, e.g. "match.tags.energy".
	Field string `json:"field,omitempty"`

	// Message is the human-readable problem description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	var b strings.Builder
	if e.ProductID != "" {
		b.WriteString(e.ProductID)
		b.WriteString(": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ValidationErrors is the collected list of load-time problems. A nil or
// empty list means the document set is valid.
type ValidationErrors []ValidationError

// Error implements the error interface, joining individual messages.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(ve), strings.Join(msgs, "; "))
}

// OrNil returns the list as an error, or nil when it is empty. Avoids the
// typed-nil-in-interface pitfall at call sites.
func (ve ValidationErrors) OrNil() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

// RequestError rejects a malformed recommendation request. It never
// affects other in-flight requests.
type RequestError struct {
	// Field is the offending request field.
	Field string `json:"field"`

	// Message is the human-readable problem description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}
