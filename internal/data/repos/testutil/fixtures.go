package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/domain"
)

func SeedRuleSet(tb testing.TB, tx *gorm.DB, ownerID uuid.UUID) *domain.RuleSet {
	tb.Helper()
	rs := &domain.RuleSet{
		OwnerID:           ownerID,
		Name:              "CA Edibles",
		StateName:         "California",
		StateAbbreviation: "CA",
		ProductType:       domain.ProductTypeEdibles,
		Active:            true,
	}
	if err := tx.Create(rs).Error; err != nil {
		tb.Fatalf("seed rule set: %v", err)
	}
	return rs
}

func SeedRule(tb testing.TB, tx *gorm.DB, ruleSetID uuid.UUID, name string) *domain.ComplianceRule {
	tb.Helper()
	rule := &domain.ComplianceRule{
		RuleSetID:        ruleSetID,
		Name:             name,
		Description:      "seeded rule",
		Category:         domain.CategoryGeneral,
		Severity:         domain.SeverityError,
		ValidationPrompt: "Verify " + name + " appears on the label.",
		Active:           true,
	}
	if err := tx.Create(rule).Error; err != nil {
		tb.Fatalf("seed rule: %v", err)
	}
	return rule
}

func SeedCheck(tb testing.TB, tx *gorm.DB, ownerID, ruleSetID uuid.UUID) *domain.ComplianceCheck {
	tb.Helper()
	check := &domain.ComplianceCheck{
		OwnerID:     ownerID,
		RuleSetID:   ruleSetID,
		ProductName: "Test Gummies 100mg",
	}
	if err := tx.Create(check).Error; err != nil {
		tb.Fatalf("seed check: %v", err)
	}
	return check
}

func SeedPanel(tb testing.TB, tx *gorm.DB, checkID uuid.UUID, panelType string) *domain.PanelUpload {
	tb.Helper()
	panel := &domain.PanelUpload{
		CheckID:      checkID,
		PanelType:    panelType,
		StorageKey:   "panels/test/" + panelType + ".jpg",
		OriginalName: panelType + ".jpg",
		MimeType:     "image/jpeg",
		SizeBytes:    1024,
	}
	if err := tx.Create(panel).Error; err != nil {
		tb.Fatalf("seed panel: %v", err)
	}
	return panel
}
