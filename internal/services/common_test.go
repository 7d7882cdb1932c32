package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return log
}

// fakeGemini lets tests script model responses and capture the instruction
// each call was given.
type fakeGemini struct {
	generateJSON          func(instruction string, schema map[string]any) (json.RawMessage, error)
	generateJSONWithImage func(instruction string, image []byte, mimeType string, schema map[string]any) (json.RawMessage, error)

	lastInstruction string
	lastMimeType    string
	calls           int
}

func (f *fakeGemini) GenerateJSON(ctx context.Context, instruction string, schema map[string]any) (json.RawMessage, error) {
	f.calls++
	f.lastInstruction = instruction
	if f.generateJSON == nil {
		return nil, pkgerr.ErrUpstream
	}
	return f.generateJSON(instruction, schema)
}

func (f *fakeGemini) GenerateJSONWithImage(ctx context.Context, instruction string, image []byte, mimeType string, schema map[string]any) (json.RawMessage, error) {
	f.calls++
	f.lastInstruction = instruction
	f.lastMimeType = mimeType
	if f.generateJSONWithImage == nil {
		return nil, pkgerr.ErrUpstream
	}
	return f.generateJSONWithImage(instruction, image, mimeType, schema)
}

// fakeRuleRepo serves scripted rule rows and records writes.
type fakeRuleRepo struct {
	active  []*domain.ComplianceRule
	all     []*domain.ComplianceRule
	created []*domain.ComplianceRule
	updates map[uuid.UUID]map[string]interface{}
	byCite  map[string]*domain.ComplianceRule
}

func (f *fakeRuleRepo) Create(ctx context.Context, tx *gorm.DB, rules []*domain.ComplianceRule) ([]*domain.ComplianceRule, error) {
	f.created = append(f.created, rules...)
	return rules, nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ComplianceRule, error) {
	for _, r := range f.all {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, pkgerr.ErrNotFound
}

func (f *fakeRuleRepo) ListByRuleSet(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID) ([]*domain.ComplianceRule, error) {
	return f.all, nil
}

func (f *fakeRuleRepo) ListActiveByRuleSet(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID) ([]*domain.ComplianceRule, error) {
	return f.active, nil
}

func (f *fakeRuleRepo) GetByCitation(ctx context.Context, tx *gorm.DB, ruleSetID uuid.UUID, citation string) (*domain.ComplianceRule, error) {
	if r, ok := f.byCite[citation]; ok {
		return r, nil
	}
	return nil, pkgerr.ErrNotFound
}

func (f *fakeRuleRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]map[string]interface{}{}
	}
	f.updates[id] = updates
	return nil
}

func (f *fakeRuleRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

// fakeRuleSetRepo serves a single scripted rule set.
type fakeRuleSetRepo struct {
	ruleSet *domain.RuleSet
}

func (f *fakeRuleSetRepo) Create(ctx context.Context, tx *gorm.DB, rs *domain.RuleSet) (*domain.RuleSet, error) {
	return rs, nil
}

func (f *fakeRuleSetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RuleSet, error) {
	if f.ruleSet != nil && f.ruleSet.ID == id {
		return f.ruleSet, nil
	}
	return nil, pkgerr.ErrNotFound
}

func (f *fakeRuleSetRepo) GetByIDWithRules(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RuleSet, error) {
	return f.GetByID(ctx, tx, id)
}

func (f *fakeRuleSetRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.RuleSet, error) {
	if f.ruleSet != nil && f.ruleSet.OwnerID == ownerID {
		return []*domain.RuleSet{f.ruleSet}, nil
	}
	return nil, nil
}

func (f *fakeRuleSetRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeRuleSetRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}
