package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

type CheckRepo interface {
	Create(ctx context.Context, tx *gorm.DB, check *domain.ComplianceCheck) (*domain.ComplianceCheck, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ComplianceCheck, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ComplianceCheck, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.ComplianceCheck, error)
	Complete(ctx context.Context, tx *gorm.DB, id uuid.UUID, overallStatus string, passCount, warningCount, failCount int, completedAt time.Time) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type checkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCheckRepo(db *gorm.DB, baseLog *logger.Logger) CheckRepo {
	return &checkRepo{db: db, log: baseLog.With("repo", "CheckRepo")}
}

func (r *checkRepo) Create(ctx context.Context, tx *gorm.DB, check *domain.ComplianceCheck) (*domain.ComplianceCheck, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(check).Error; err != nil {
		return nil, err
	}
	return check, nil
}

func (r *checkRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ComplianceCheck, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var check domain.ComplianceCheck
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&check).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &check, nil
}

func (r *checkRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ComplianceCheck, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var check domain.ComplianceCheck
	if err := transaction.WithContext(ctx).
		Preload("Panels", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Results.Rule").
		Where("id = ?", id).
		First(&check).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &check, nil
}

func (r *checkRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.ComplianceCheck, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.ComplianceCheck
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Complete writes the overall status, the three counters and completed_at in
// one update so the check never reads as half-finished.
func (r *checkRepo) Complete(ctx context.Context, tx *gorm.DB, id uuid.UUID, overallStatus string, passCount, warningCount, failCount int, completedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&domain.ComplianceCheck{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"overall_status": overallStatus,
			"pass_count":     passCount,
			"warning_count":  warningCount,
			"fail_count":     failCount,
			"completed_at":   completedAt,
		}).Error
}

// DeleteByID is reentrant: deleting an already-deleted check is a no-op.
// Panels and results go with the row via FK cascade.
func (r *checkRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.ComplianceCheck{}).Error
}
