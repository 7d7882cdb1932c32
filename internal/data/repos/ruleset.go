package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

type RuleSetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rs *domain.RuleSet) (*domain.RuleSet, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RuleSet, error)
	GetByIDWithRules(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RuleSet, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.RuleSet, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type ruleSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleSetRepo(db *gorm.DB, baseLog *logger.Logger) RuleSetRepo {
	return &ruleSetRepo{db: db, log: baseLog.With("repo", "RuleSetRepo")}
}

func (r *ruleSetRepo) Create(ctx context.Context, tx *gorm.DB, rs *domain.RuleSet) (*domain.RuleSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(rs).Error; err != nil {
		return nil, err
	}
	return rs, nil
}

func (r *ruleSetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RuleSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rs domain.RuleSet
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&rs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &rs, nil
}

func (r *ruleSetRepo) GetByIDWithRules(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RuleSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rs domain.RuleSet
	if err := transaction.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&rs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &rs, nil
}

func (r *ruleSetRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.RuleSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.RuleSet
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ruleSetRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&domain.RuleSet{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ruleSetRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.RuleSet{}).Error
}
