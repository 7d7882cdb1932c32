package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product types a rule set can target. The legacy tinctures/pre_rolls/other
// values were retired; rows carrying them predate the narrowing.
const (
	ProductTypeFlower       = "flower"
	ProductTypeEdibles      = "edibles"
	ProductTypeConcentrates = "concentrates"
	ProductTypeTopicals     = "topicals"
)

func ValidProductType(pt string) bool {
	switch pt {
	case ProductTypeFlower, ProductTypeEdibles, ProductTypeConcentrates, ProductTypeTopicals:
		return true
	}
	return false
}

type RuleSet struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID           uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name              string    `gorm:"column:name;not null" json:"name"`
	Description       string    `gorm:"column:description" json:"description"`
	StateName         string    `gorm:"column:state_name;not null" json:"state_name"`
	StateAbbreviation string    `gorm:"column:state_abbreviation" json:"state_abbreviation"`
	ProductType       string    `gorm:"column:product_type;not null" json:"product_type"`
	Active            bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt         time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;default:now()" json:"updated_at"`

	Rules []ComplianceRule `gorm:"foreignKey:RuleSetID;references:ID" json:"rules,omitempty"`
}

func (RuleSet) TableName() string { return "rule_set" }
