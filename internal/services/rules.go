package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/data/repos"
	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

type CreateRuleSetInput struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	StateName         string `json:"state_name"`
	StateAbbreviation string `json:"state_abbreviation"`
	ProductType       string `json:"product_type"`
}

type CreateRuleInput struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Severity         string `json:"severity"`
	ValidationPrompt string `json:"validation_prompt"`
	SourceCitation   string `json:"source_citation"`
}

type UpdateRuleInput struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Category         *string `json:"category"`
	Severity         *string `json:"severity"`
	ValidationPrompt *string `json:"validation_prompt"`
	SourceCitation   *string `json:"source_citation"`
	Active           *bool   `json:"active"`
}

type RuleService interface {
	CreateRuleSet(ctx context.Context, ownerID uuid.UUID, input CreateRuleSetInput) (*domain.RuleSet, error)
	ListRuleSets(ctx context.Context, ownerID uuid.UUID) ([]*domain.RuleSet, error)
	GetRuleSet(ctx context.Context, ownerID, ruleSetID uuid.UUID) (*domain.RuleSet, error)
	DeleteRuleSet(ctx context.Context, ownerID, ruleSetID uuid.UUID) error
	CreateRule(ctx context.Context, ownerID, ruleSetID uuid.UUID, input CreateRuleInput) (*domain.ComplianceRule, error)
	UpdateRule(ctx context.Context, ownerID, ruleID uuid.UUID, input UpdateRuleInput) (*domain.ComplianceRule, error)
	DeleteRule(ctx context.Context, ownerID, ruleID uuid.UUID) error
}

type ruleService struct {
	db          *gorm.DB
	log         *logger.Logger
	ruleSetRepo repos.RuleSetRepo
	ruleRepo    repos.RuleRepo
}

func NewRuleService(db *gorm.DB, baseLog *logger.Logger, ruleSetRepo repos.RuleSetRepo, ruleRepo repos.RuleRepo) RuleService {
	return &ruleService{
		db:          db,
		log:         baseLog.With("service", "RuleService"),
		ruleSetRepo: ruleSetRepo,
		ruleRepo:    ruleRepo,
	}
}

// ownedRuleSet loads a rule set and hides it behind ErrNotFound when the
// caller does not own it.
func (s *ruleService) ownedRuleSet(ctx context.Context, ownerID, ruleSetID uuid.UUID) (*domain.RuleSet, error) {
	rs, err := s.ruleSetRepo.GetByID(ctx, nil, ruleSetID)
	if err != nil {
		return nil, err
	}
	if rs.OwnerID != ownerID {
		return nil, pkgerr.ErrNotFound
	}
	return rs, nil
}

func (s *ruleService) CreateRuleSet(ctx context.Context, ownerID uuid.UUID, input CreateRuleSetInput) (*domain.RuleSet, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", pkgerr.ErrInvalidArgument)
	}
	if input.StateName == "" {
		return nil, fmt.Errorf("%w: state_name is required", pkgerr.ErrInvalidArgument)
	}
	if !domain.ValidProductType(input.ProductType) {
		return nil, fmt.Errorf("%w: invalid product_type %q", pkgerr.ErrInvalidArgument, input.ProductType)
	}
	rs := &domain.RuleSet{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		Name:              input.Name,
		Description:       input.Description,
		StateName:         input.StateName,
		StateAbbreviation: input.StateAbbreviation,
		ProductType:       input.ProductType,
		Active:            true,
	}
	return s.ruleSetRepo.Create(ctx, nil, rs)
}

func (s *ruleService) ListRuleSets(ctx context.Context, ownerID uuid.UUID) ([]*domain.RuleSet, error) {
	return s.ruleSetRepo.ListByOwner(ctx, nil, ownerID)
}

func (s *ruleService) GetRuleSet(ctx context.Context, ownerID, ruleSetID uuid.UUID) (*domain.RuleSet, error) {
	if _, err := s.ownedRuleSet(ctx, ownerID, ruleSetID); err != nil {
		return nil, err
	}
	return s.ruleSetRepo.GetByIDWithRules(ctx, nil, ruleSetID)
}

func (s *ruleService) DeleteRuleSet(ctx context.Context, ownerID, ruleSetID uuid.UUID) error {
	if _, err := s.ownedRuleSet(ctx, ownerID, ruleSetID); err != nil {
		return err
	}
	s.log.Info("Deleting rule set", "rule_set_id", ruleSetID)
	return s.ruleSetRepo.DeleteByID(ctx, nil, ruleSetID)
}

func (s *ruleService) CreateRule(ctx context.Context, ownerID, ruleSetID uuid.UUID, input CreateRuleInput) (*domain.ComplianceRule, error) {
	if _, err := s.ownedRuleSet(ctx, ownerID, ruleSetID); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", pkgerr.ErrInvalidArgument)
	}
	if input.ValidationPrompt == "" {
		return nil, fmt.Errorf("%w: validation_prompt is required", pkgerr.ErrInvalidArgument)
	}
	category := input.Category
	if category == "" {
		category = domain.CategoryGeneral
	}
	if !domain.ValidCategory(category) {
		return nil, fmt.Errorf("%w: invalid category %q", pkgerr.ErrInvalidArgument, category)
	}
	severity := input.Severity
	if severity == "" {
		severity = domain.SeverityError
	}
	switch severity {
	case domain.SeverityError, domain.SeverityWarning, domain.SeverityInfo:
	default:
		return nil, fmt.Errorf("%w: invalid severity %q", pkgerr.ErrInvalidArgument, severity)
	}
	rule := &domain.ComplianceRule{
		ID:               uuid.New(),
		RuleSetID:        ruleSetID,
		Name:             input.Name,
		Description:      input.Description,
		Category:         category,
		Severity:         severity,
		ValidationPrompt: input.ValidationPrompt,
		SourceCitation:   input.SourceCitation,
		Active:           true,
	}
	created, err := s.ruleRepo.Create(ctx, nil, []*domain.ComplianceRule{rule})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func (s *ruleService) UpdateRule(ctx context.Context, ownerID, ruleID uuid.UUID, input UpdateRuleInput) (*domain.ComplianceRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, nil, ruleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedRuleSet(ctx, ownerID, rule.RuleSetID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		if !domain.ValidCategory(*input.Category) {
			return nil, fmt.Errorf("%w: invalid category %q", pkgerr.ErrInvalidArgument, *input.Category)
		}
		updates["category"] = *input.Category
	}
	if input.Severity != nil {
		updates["severity"] = *input.Severity
	}
	if input.ValidationPrompt != nil {
		if *input.ValidationPrompt == "" {
			return nil, fmt.Errorf("%w: validation_prompt cannot be empty", pkgerr.ErrInvalidArgument)
		}
		updates["validation_prompt"] = *input.ValidationPrompt
	}
	if input.SourceCitation != nil {
		updates["source_citation"] = *input.SourceCitation
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if len(updates) == 0 {
		return rule, nil
	}
	if err := s.ruleRepo.Update(ctx, nil, ruleID, updates); err != nil {
		return nil, err
	}
	return s.ruleRepo.GetByID(ctx, nil, ruleID)
}

func (s *ruleService) DeleteRule(ctx context.Context, ownerID, ruleID uuid.UUID) error {
	rule, err := s.ruleRepo.GetByID(ctx, nil, ruleID)
	if err != nil {
		return err
	}
	if _, err := s.ownedRuleSet(ctx, ownerID, rule.RuleSetID); err != nil {
		return err
	}
	return s.ruleRepo.DeleteByID(ctx, nil, ruleID)
}
