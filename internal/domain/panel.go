package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Panel types. The UI replaces an existing upload for the same panel type;
// the schema does not enforce uniqueness on (check, panel_type).
const (
	PanelTypeFront   = "front"
	PanelTypeBack    = "back"
	PanelTypeLeft    = "left"
	PanelTypeRight   = "right"
	PanelTypeExitBag = "exit_bag"
	PanelTypeOther   = "other"
)

func ValidPanelType(pt string) bool {
	switch pt {
	case PanelTypeFront, PanelTypeBack, PanelTypeLeft, PanelTypeRight, PanelTypeExitBag, PanelTypeOther:
		return true
	}
	return false
}

type PanelUpload struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CheckID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"check_id"`
	Check         *ComplianceCheck `gorm:"constraint:OnDelete:CASCADE;foreignKey:CheckID;references:ID" json:"check,omitempty"`
	PanelType     string           `gorm:"column:panel_type;not null" json:"panel_type"`
	StorageKey    string           `gorm:"column:storage_key;not null" json:"storage_key"`
	FileURL       string           `gorm:"column:file_url" json:"file_url"`
	OriginalName  string           `gorm:"column:original_name" json:"original_name"`
	MimeType      string           `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes     int64            `gorm:"column:size_bytes" json:"size_bytes"`
	ExtractedData datatypes.JSON   `gorm:"column:extracted_data;type:jsonb" json:"extracted_data,omitempty"`
	CreatedAt     time.Time        `gorm:"not null;default:now()" json:"created_at"`
}

func (PanelUpload) TableName() string { return "panel_upload" }
