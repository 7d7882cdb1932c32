package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/verdantiq/labelproof-backend/internal/data/repos"
	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

// RuleResolver decides whether a check runs against stored rules or rules
// synthesized at check time. Synthesized rules are never written to the rule
// store; only check results referencing them are, with the rule details
// denormalized inline.
type RuleResolver interface {
	ResolveRules(ctx context.Context, ruleSet *domain.RuleSet) ([]domain.ResolvedRule, string, error)
}

type ruleResolver struct {
	log      *logger.Logger
	ruleRepo repos.RuleRepo
	model    GeminiClient
}

func NewRuleResolver(baseLog *logger.Logger, ruleRepo repos.RuleRepo, model GeminiClient) RuleResolver {
	return &ruleResolver{
		log:      baseLog.With("service", "RuleResolver"),
		ruleRepo: ruleRepo,
		model:    model,
	}
}

func (s *ruleResolver) ResolveRules(ctx context.Context, ruleSet *domain.RuleSet) ([]domain.ResolvedRule, string, error) {
	stored, err := s.ruleRepo.ListActiveByRuleSet(ctx, nil, ruleSet.ID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: list rules: %v", pkgerr.ErrPersistence, err)
	}
	if len(stored) > 0 {
		resolved := make([]domain.ResolvedRule, 0, len(stored))
		for _, r := range stored {
			resolved = append(resolved, domain.ResolvedFromRule(r))
		}
		s.log.Debug("Resolved persisted rules", "rule_set_id", ruleSet.ID, "count", len(resolved))
		return resolved, domain.RuleProvenancePersisted, nil
	}

	s.log.Info("No active rules, synthesizing via model",
		"rule_set_id", ruleSet.ID,
		"state", ruleSet.StateName,
		"product_type", ruleSet.ProductType,
	)
	generated, err := s.synthesizeRules(ctx, ruleSet)
	if err != nil {
		return nil, "", err
	}
	return generated, domain.RuleProvenanceGenerated, nil
}

type synthesizedRule struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Severity         string `json:"severity"`
	ValidationPrompt string `json:"validation_prompt"`
}

type synthesizedRuleList struct {
	Rules []synthesizedRule `json:"rules"`
}

func synthesisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rules": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":              map[string]any{"type": "string"},
						"description":       map[string]any{"type": "string"},
						"category":          map[string]any{"type": "string", "enum": domain.Categories()},
						"severity":          map[string]any{"type": "string", "enum": []string{domain.SeverityError, domain.SeverityWarning, domain.SeverityInfo}},
						"validation_prompt": map[string]any{"type": "string"},
					},
					"required": []string{"name", "description", "category", "severity", "validation_prompt"},
				},
			},
		},
		"required": []string{"rules"},
	}
}

func synthesisInstruction(ruleSet *domain.RuleSet) string {
	return fmt.Sprintf(`You are a cannabis regulatory compliance expert. Generate between 8 and 15 label compliance rules for %s (%s) covering %s products.

Each rule must have:
- name: a short title
- description: what the regulation requires on the product label
- category: one of the fixed categories
- severity: "error" for hard legal requirements, "warning" for commonly cited issues, "info" for best practices
- validation_prompt: a precise natural-language instruction telling a reviewer how to verify the rule against extracted label data

Cover the universally regulated areas: THC/CBD content disclosure, government warning statements, child-resistant packaging symbols, net weight, ingredient listing, lab testing/batch information, and license numbers. Return JSON only.`,
		ruleSet.StateName, ruleSet.StateAbbreviation, ruleSet.ProductType)
}

func (s *ruleResolver) synthesizeRules(ctx context.Context, ruleSet *domain.RuleSet) ([]domain.ResolvedRule, error) {
	raw, err := s.model.GenerateJSON(ctx, synthesisInstruction(ruleSet), synthesisSchema())
	if err != nil {
		return nil, err
	}
	var parsed synthesizedRuleList
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse synthesized rules: %v", pkgerr.ErrUpstream, err)
	}
	if len(parsed.Rules) == 0 {
		return nil, fmt.Errorf("%w: model returned no rules", pkgerr.ErrUpstream)
	}

	resolved := make([]domain.ResolvedRule, 0, len(parsed.Rules))
	for _, sr := range parsed.Rules {
		if sr.Name == "" || sr.ValidationPrompt == "" {
			continue
		}
		category := sr.Category
		if !domain.ValidCategory(category) {
			category = domain.CategoryGeneral
		}
		severity := sr.Severity
		switch severity {
		case domain.SeverityError, domain.SeverityWarning, domain.SeverityInfo:
		default:
			severity = domain.SeverityError
		}
		resolved = append(resolved, domain.ResolvedRule{
			ID:               uuid.New(),
			Name:             sr.Name,
			Description:      sr.Description,
			Category:         category,
			Severity:         severity,
			ValidationPrompt: sr.ValidationPrompt,
		})
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: model returned no usable rules", pkgerr.ErrUpstream)
	}
	return resolved, nil
}
