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

type RuleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rules []*domain.ComplianceRule) ([]*domain.ComplianceRule, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ComplianceRule, error)
	ListByRuleSet(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID) ([]*domain.ComplianceRule, error)
	ListActiveByRuleSet(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID) ([]*domain.ComplianceRule, error)
	GetByCitation(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID, citation string) (*domain.ComplianceRule, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type ruleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleRepo(db *gorm.DB, baseLog *logger.Logger) RuleRepo {
	return &ruleRepo{db: db, log: baseLog.With("repo", "RuleRepo")}
}

func (r *ruleRepo) Create(ctx context.Context, tx *gorm.DB, rules []*domain.ComplianceRule) ([]*domain.ComplianceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rules) == 0 {
		return []*domain.ComplianceRule{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ComplianceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rule domain.ComplianceRule
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepo) ListByRuleSet(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID) ([]*domain.ComplianceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.ComplianceRule
	if err := transaction.WithContext(ctx).
		Where("rule_set_id = ?", ruleSetID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ruleRepo) ListActiveByRuleSet(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID) ([]*domain.ComplianceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.ComplianceRule
	if err := transaction.WithContext(ctx).
		Where("rule_set_id = ? AND active = ?", ruleSetID, true).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ruleRepo) GetByCitation(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID, citation string) (*domain.ComplianceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rule domain.ComplianceRule
	if err := transaction.WithContext(ctx).
		Where("rule_set_id = ? AND source_citation = ?", ruleSetID, citation).
		First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&domain.ComplianceRule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ruleRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.ComplianceRule{}).Error
}
