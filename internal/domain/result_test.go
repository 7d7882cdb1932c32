package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewPersistedResult_Validates(t *testing.T) {
	checkID := uuid.New()
	ruleID := uuid.New()

	r := NewPersistedResult(checkID, ruleID, CheckStatusPass, nil, nil, "ok")
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid persisted result, got %v", err)
	}
	if r.RuleID == nil || *r.RuleID != ruleID {
		t.Fatalf("expected rule id %s, got %v", ruleID, r.RuleID)
	}
	if r.IsGeneratedRule {
		t.Fatalf("persisted result must not carry the generated flag")
	}
}

func TestNewGeneratedResult_Validates(t *testing.T) {
	r := NewGeneratedResult(uuid.New(), "THC Disclosure", "desc", CategoryTHCContent, CheckStatusFail, nil, nil, "missing")
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid generated result, got %v", err)
	}
	if r.RuleID != nil {
		t.Fatalf("generated result must not reference a stored rule")
	}
}

func TestValidate_RejectsBothArms(t *testing.T) {
	ruleID := uuid.New()
	r := &CheckResult{
		ID:                uuid.New(),
		CheckID:           uuid.New(),
		RuleID:            &ruleID,
		IsGeneratedRule:   true,
		GeneratedRuleName: "x",
		Status:            CheckStatusPass,
	}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected validation error when both arms are set")
	}
}

func TestValidate_RejectsNeitherArm(t *testing.T) {
	r := &CheckResult{
		ID:      uuid.New(),
		CheckID: uuid.New(),
		Status:  CheckStatusPass,
	}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected validation error when neither arm is set")
	}
}

func TestValidate_GeneratedFlagWithoutNameIsNeitherArm(t *testing.T) {
	r := &CheckResult{
		ID:              uuid.New(),
		CheckID:         uuid.New(),
		IsGeneratedRule: true,
		Status:          CheckStatusPass,
	}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected validation error for generated flag without a name")
	}
}

func TestValidate_RejectsUnknownStatus(t *testing.T) {
	r := NewGeneratedResult(uuid.New(), "x", "", CategoryGeneral, "maybe", nil, nil, "")
	if err := r.Validate(); err == nil {
		t.Fatalf("expected validation error for status %q", r.Status)
	}
}
