package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/domain"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

type PanelRepo interface {
	Create(ctx context.Context, tx *gorm.DB, panel *domain.PanelUpload) (*domain.PanelUpload, error)
	ListByCheck(ctx context.Context, tx *gorm.DB, checkID uuid.UUID) ([]*domain.PanelUpload, error)
	SetExtractedData(ctx context.Context, tx *gorm.DB, id uuid.UUID, data datatypes.JSON) error
}

type panelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPanelRepo(db *gorm.DB, baseLog *logger.Logger) PanelRepo {
	return &panelRepo{db: db, log: baseLog.With("repo", "PanelRepo")}
}

func (r *panelRepo) Create(ctx context.Context, tx *gorm.DB, panel *domain.PanelUpload) (*domain.PanelUpload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(panel).Error; err != nil {
		return nil, err
	}
	return panel, nil
}

// ListByCheck returns panels in upload order. The evaluator's scalar merge
// is last-write-wins, so this ordering is load-bearing.
func (r *panelRepo) ListByCheck(ctx context.Context, tx *gorm.DB, checkID uuid.UUID) ([]*domain.PanelUpload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.PanelUpload
	if err := transaction.WithContext(ctx).
		Where("check_id = ?", checkID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *panelRepo) SetExtractedData(ctx context.Context, tx *gorm.DB, id uuid.UUID, data datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&domain.PanelUpload{}).
		Where("id = ?", id).
		Update("extracted_data", data).Error
}
