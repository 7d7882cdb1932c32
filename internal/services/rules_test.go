package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/verdantiq/labelproof-backend/internal/data/repos"
	"github.com/verdantiq/labelproof-backend/internal/data/repos/testutil"
	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
)

func newRuleService(t *testing.T) (RuleService, uuid.UUID) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	svc := NewRuleService(tx, log, repos.NewRuleSetRepo(tx, log), repos.NewRuleRepo(tx, log))
	return svc, uuid.New()
}

func TestCreateRuleSet_Validation(t *testing.T) {
	svc, ownerID := newRuleService(t)
	ctx := context.Background()

	rs, err := svc.CreateRuleSet(ctx, ownerID, CreateRuleSetInput{
		Name:              "OR Topicals",
		StateName:         "Oregon",
		StateAbbreviation: "OR",
		ProductType:       domain.ProductTypeTopicals,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rs.Active {
		t.Fatalf("new rule set must start active")
	}

	cases := []CreateRuleSetInput{
		{StateName: "Oregon", ProductType: domain.ProductTypeFlower},                   // no name
		{Name: "x", ProductType: domain.ProductTypeFlower},                             // no state
		{Name: "x", StateName: "Oregon", ProductType: "beverages"},                     // bad product type
		{Name: "x", StateName: "Oregon", ProductType: ""},                              // empty product type
	}
	for i, input := range cases {
		if _, err := svc.CreateRuleSet(ctx, ownerID, input); !errors.Is(err, pkgerr.ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestCreateRule_DefaultsAndValidation(t *testing.T) {
	svc, ownerID := newRuleService(t)
	ctx := context.Background()

	rs, err := svc.CreateRuleSet(ctx, ownerID, CreateRuleSetInput{
		Name: "NV Flower", StateName: "Nevada", ProductType: domain.ProductTypeFlower,
	})
	if err != nil {
		t.Fatalf("create rule set: %v", err)
	}

	rule, err := svc.CreateRule(ctx, ownerID, rs.ID, CreateRuleInput{
		Name:             "Custom Rule",
		ValidationPrompt: "check something",
	})
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}
	if rule.Category != domain.CategoryGeneral || rule.Severity != domain.SeverityError {
		t.Fatalf("defaults not applied: %+v", rule)
	}

	if _, err := svc.CreateRule(ctx, ownerID, rs.ID, CreateRuleInput{ValidationPrompt: "p"}); !errors.Is(err, pkgerr.ErrInvalidArgument) {
		t.Fatalf("missing name must be invalid, got %v", err)
	}
	if _, err := svc.CreateRule(ctx, ownerID, rs.ID, CreateRuleInput{Name: "n"}); !errors.Is(err, pkgerr.ErrInvalidArgument) {
		t.Fatalf("missing validation_prompt must be invalid, got %v", err)
	}
	if _, err := svc.CreateRule(ctx, ownerID, rs.ID, CreateRuleInput{Name: "n", ValidationPrompt: "p", Category: "Bogus"}); !errors.Is(err, pkgerr.ErrInvalidArgument) {
		t.Fatalf("bad category must be invalid, got %v", err)
	}
	if _, err := svc.CreateRule(ctx, uuid.New(), rs.ID, CreateRuleInput{Name: "n", ValidationPrompt: "p"}); !errors.Is(err, pkgerr.ErrNotFound) {
		t.Fatalf("foreign owner must read as not found, got %v", err)
	}
}

func TestUpdateRule_PartialUpdates(t *testing.T) {
	svc, ownerID := newRuleService(t)
	ctx := context.Background()

	rs, err := svc.CreateRuleSet(ctx, ownerID, CreateRuleSetInput{
		Name: "AZ Edibles", StateName: "Arizona", ProductType: domain.ProductTypeEdibles,
	})
	if err != nil {
		t.Fatalf("create rule set: %v", err)
	}
	rule, err := svc.CreateRule(ctx, ownerID, rs.ID, CreateRuleInput{
		Name: "Original", ValidationPrompt: "p",
	})
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}

	newName := "Renamed"
	inactive := false
	updated, err := svc.UpdateRule(ctx, ownerID, rule.ID, UpdateRuleInput{Name: &newName, Active: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" || updated.Active {
		t.Fatalf("update did not land: %+v", updated)
	}
	if updated.ValidationPrompt != "p" {
		t.Fatalf("untouched field changed: %+v", updated)
	}

	empty := ""
	if _, err := svc.UpdateRule(ctx, ownerID, rule.ID, UpdateRuleInput{ValidationPrompt: &empty}); !errors.Is(err, pkgerr.ErrInvalidArgument) {
		t.Fatalf("empty validation_prompt must be invalid, got %v", err)
	}
	if _, err := svc.UpdateRule(ctx, uuid.New(), rule.ID, UpdateRuleInput{Name: &newName}); !errors.Is(err, pkgerr.ErrNotFound) {
		t.Fatalf("foreign owner must read as not found, got %v", err)
	}
}

func TestGetRuleSet_OwnershipAndPreload(t *testing.T) {
	svc, ownerID := newRuleService(t)
	ctx := context.Background()

	rs, err := svc.CreateRuleSet(ctx, ownerID, CreateRuleSetInput{
		Name: "IL Concentrates", StateName: "Illinois", ProductType: domain.ProductTypeConcentrates,
	})
	if err != nil {
		t.Fatalf("create rule set: %v", err)
	}
	if _, err := svc.CreateRule(ctx, ownerID, rs.ID, CreateRuleInput{Name: "r", ValidationPrompt: "p"}); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	got, err := svc.GetRuleSet(ctx, ownerID, rs.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Rules) != 1 {
		t.Fatalf("expected preloaded rules, got %d", len(got.Rules))
	}

	if _, err := svc.GetRuleSet(ctx, uuid.New(), rs.ID); !errors.Is(err, pkgerr.ErrNotFound) {
		t.Fatalf("foreign owner must read as not found, got %v", err)
	}
}
