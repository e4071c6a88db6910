// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package validation

import (
	"strings"
	"testing"
)

type testPayload struct {
	UserID string `validate:"required"`
	Limit  int    `validate:"min=0,max=100"`
	Mode   string `validate:"omitempty,oneof=any all"`
}

func TestValidateStructPasses(t *testing.T) {
	t.Parallel()

	if err := ValidateStruct(&testPayload{UserID: "u1", Limit: 10, Mode: "any"}); err != nil {
		t.Errorf("ValidateStruct() = %v, want nil", err)
	}
}

func TestValidateStructCollectsFieldErrors(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&testPayload{Limit: 500, Mode: "sometimes"})
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want errors")
	}

	if len(err.Errors()) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(err.Errors()), err)
	}

	msg := err.Error()
	for _, want := range []string{"UserID is required", "Limit must be at most 100", "Mode must be one of: any all"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	single := ValidateStruct(&testPayload{UserID: "u1", Limit: -1})
	if single == nil {
		t.Fatal("expected a validation error")
	}
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.Details["field"] != "Limit" {
		t.Errorf("Details = %v, want field Limit", apiErr.Details)
	}

	multi := ValidateStruct(&testPayload{Limit: -1})
	if multi == nil {
		t.Fatal("expected validation errors")
	}
	if _, ok := multi.ToAPIError().Details["fields"]; !ok {
		t.Error("multi-error Details missing fields list")
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}
