package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckResult is one rule evaluated against one check. Provenance is a
// two-armed union: either RuleID points at a stored ComplianceRule, or the
// rule was synthesized at check time and its display fields are denormalized
// inline. Exactly one arm must be populated; construct rows through
// NewPersistedResult/NewGeneratedResult and call Validate before insert.
type CheckResult struct {
	ID      uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CheckID uuid.UUID        `gorm:"type:uuid;not null;index" json:"check_id"`
	Check   *ComplianceCheck `gorm:"constraint:OnDelete:CASCADE;foreignKey:CheckID;references:ID" json:"check,omitempty"`

	RuleID *uuid.UUID      `gorm:"type:uuid;index" json:"rule_id,omitempty"`
	Rule   *ComplianceRule `gorm:"constraint:OnDelete:CASCADE;foreignKey:RuleID;references:ID" json:"rule,omitempty"`

	IsGeneratedRule          bool   `gorm:"column:is_generated_rule;not null;default:false" json:"is_generated_rule"`
	GeneratedRuleName        string `gorm:"column:generated_rule_name" json:"generated_rule_name,omitempty"`
	GeneratedRuleDescription string `gorm:"column:generated_rule_description" json:"generated_rule_description,omitempty"`
	GeneratedRuleCategory    string `gorm:"column:generated_rule_category" json:"generated_rule_category,omitempty"`

	Status        string    `gorm:"column:status;not null" json:"status"`
	FoundValue    *string   `gorm:"column:found_value" json:"found_value,omitempty"`
	ExpectedValue *string   `gorm:"column:expected_value" json:"expected_value,omitempty"`
	Explanation   string    `gorm:"column:explanation" json:"explanation"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CheckResult) TableName() string { return "check_result" }

func NewPersistedResult(checkID, ruleID uuid.UUID, status string, found, expected *string, explanation string) *CheckResult {
	rid := ruleID
	return &CheckResult{
		ID:            uuid.New(),
		CheckID:       checkID,
		RuleID:        &rid,
		Status:        status,
		FoundValue:    found,
		ExpectedValue: expected,
		Explanation:   explanation,
	}
}

func NewGeneratedResult(checkID uuid.UUID, name, description, category, status string, found, expected *string, explanation string) *CheckResult {
	return &CheckResult{
		ID:                       uuid.New(),
		CheckID:                  checkID,
		IsGeneratedRule:          true,
		GeneratedRuleName:        name,
		GeneratedRuleDescription: description,
		GeneratedRuleCategory:    category,
		Status:                   status,
		FoundValue:               found,
		ExpectedValue:            expected,
		Explanation:              explanation,
	}
}

// Validate enforces the provenance XOR: a stored-rule reference or inline
// generated-rule fields, never both, never neither.
func (r *CheckResult) Validate() error {
	persisted := r.RuleID != nil && *r.RuleID != uuid.Nil
	generated := r.IsGeneratedRule && r.GeneratedRuleName != ""
	if persisted == generated {
		return fmt.Errorf("check result %s: exactly one of rule_id or generated-rule fields must be set", r.ID)
	}
	switch r.Status {
	case CheckStatusPass, CheckStatusWarning, CheckStatusFail:
	default:
		return fmt.Errorf("check result %s: invalid status %q", r.ID, r.Status)
	}
	return nil
}
