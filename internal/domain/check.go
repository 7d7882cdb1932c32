package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	CheckStatusPass    = "pass"
	CheckStatusWarning = "warning"
	CheckStatusFail    = "fail"
)

// ComplianceCheck is one run of label validation against a rule set.
// OverallStatus, the three counters and CompletedAt are written together in
// a single update when the pipeline finishes; until then OverallStatus is
// null and the check reads as incomplete.
type ComplianceCheck struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	RuleSetID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"rule_set_id"`
	RuleSet       *RuleSet   `gorm:"constraint:OnDelete:CASCADE;foreignKey:RuleSetID;references:ID" json:"rule_set,omitempty"`
	ProductName   string     `gorm:"column:product_name" json:"product_name,omitempty"`
	OverallStatus *string    `gorm:"column:overall_status" json:"overall_status,omitempty"`
	PassCount     int        `gorm:"column:pass_count;not null;default:0" json:"pass_count"`
	WarningCount  int        `gorm:"column:warning_count;not null;default:0" json:"warning_count"`
	FailCount     int        `gorm:"column:fail_count;not null;default:0" json:"fail_count"`
	CreatedAt     time.Time  `gorm:"not null;default:now()" json:"created_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	Panels  []PanelUpload `gorm:"foreignKey:CheckID;references:ID" json:"panels,omitempty"`
	Results []CheckResult `gorm:"foreignKey:CheckID;references:ID" json:"results,omitempty"`
}

func (ComplianceCheck) TableName() string { return "compliance_check" }
