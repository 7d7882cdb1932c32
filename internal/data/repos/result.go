package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/domain"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

type ResultRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, results []*domain.CheckResult) ([]*domain.CheckResult, error)
	ListByCheck(ctx context.Context, tx *gorm.DB, checkID uuid.UUID) ([]*domain.CheckResult, error)
	DeleteByCheck(ctx context.Context, tx *gorm.DB, checkID uuid.UUID) error
}

type resultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResultRepo(db *gorm.DB, baseLog *logger.Logger) ResultRepo {
	return &resultRepo{db: db, log: baseLog.With("repo", "ResultRepo")}
}

func (r *resultRepo) CreateBatch(ctx context.Context, tx *gorm.DB, results []*domain.CheckResult) ([]*domain.CheckResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(results) == 0 {
		return []*domain.CheckResult{}, nil
	}
	for i, res := range results {
		if err := res.Validate(); err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
	}
	if err := transaction.WithContext(ctx).Create(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepo) ListByCheck(ctx context.Context, tx *gorm.DB, checkID uuid.UUID) ([]*domain.CheckResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.CheckResult
	if err := transaction.WithContext(ctx).
		Where("check_id = ?", checkID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepo) DeleteByCheck(ctx context.Context, tx *gorm.DB, checkID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("check_id = ?", checkID).
		Delete(&domain.CheckResult{}).Error
}
