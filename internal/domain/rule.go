package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Fixed category set. The importer's keyword inference and the UI both key
// off these literals, so they are not user-extensible.
const (
	CategoryTHCContent    = "THC Content"
	CategoryCBDContent    = "CBD Content"
	CategoryWarnings      = "Warning Statements"
	CategoryChildSafety   = "Child Safety"
	CategoryNetWeight     = "Net Weight"
	CategoryIngredients   = "Ingredients"
	CategoryTesting       = "Testing & Lab Results"
	CategoryLicensing     = "Licensing"
	CategoryGeneral       = "General"
)

func Categories() []string {
	return []string{
		CategoryTHCContent,
		CategoryCBDContent,
		CategoryWarnings,
		CategoryChildSafety,
		CategoryNetWeight,
		CategoryIngredients,
		CategoryTesting,
		CategoryLicensing,
		CategoryGeneral,
	}
}

func ValidCategory(c string) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Provenance of a rule row relative to the last generation-import pass.
const (
	GenerationStatusNew       = "new"
	GenerationStatusUpdated   = "updated"
	GenerationStatusUnchanged = "unchanged"
)

type ComplianceRule struct {
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RuleSetID        uuid.UUID `gorm:"type:uuid;not null;index" json:"rule_set_id"`
	RuleSet          *RuleSet  `gorm:"constraint:OnDelete:CASCADE;foreignKey:RuleSetID;references:ID" json:"rule_set,omitempty"`
	Name             string    `gorm:"column:name;not null" json:"name"`
	Description      string    `gorm:"column:description" json:"description"`
	Category         string    `gorm:"column:category;not null" json:"category"`
	Severity         string    `gorm:"column:severity;not null;default:'error'" json:"severity"`
	ValidationPrompt string    `gorm:"column:validation_prompt;not null" json:"validation_prompt"`
	SourceCitation   string    `gorm:"column:source_citation" json:"source_citation,omitempty"`
	GenerationStatus string    `gorm:"column:generation_status" json:"generation_status,omitempty"`
	Active           bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt        time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ComplianceRule) TableName() string { return "compliance_rule" }
