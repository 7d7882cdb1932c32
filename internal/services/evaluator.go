package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

// RuleVerdict is one rule's outcome, enriched with the rule's display
// metadata from the resolved rule list. The enrichment matters for generated
// rules, whose details exist nowhere but that list.
type RuleVerdict struct {
	RuleID          uuid.UUID `json:"rule_id"`
	RuleName        string    `json:"rule_name"`
	RuleDescription string    `json:"rule_description"`
	RuleCategory    string    `json:"rule_category"`
	Status          string    `json:"status"`
	FoundValue      *string   `json:"found_value"`
	ExpectedValue   *string   `json:"expected_value"`
	Explanation     string    `json:"explanation"`
}

type EvaluationSummary struct {
	OverallStatus string `json:"overall_status"`
	PassCount     int    `json:"pass_count"`
	WarningCount  int    `json:"warning_count"`
	FailCount     int    `json:"fail_count"`
}

type EvaluatorService interface {
	Evaluate(ctx context.Context, panels []domain.ExtractedLabelData, rules []domain.ResolvedRule) ([]RuleVerdict, *EvaluationSummary, error)
}

type evaluatorService struct {
	log   *logger.Logger
	model GeminiClient
}

func NewEvaluatorService(baseLog *logger.Logger, model GeminiClient) EvaluatorService {
	return &evaluatorService{
		log:   baseLog.With("service", "EvaluatorService"),
		model: model,
	}
}

// AggregateStatus rolls verdicts up with strict precedence: one fail
// dominates any number of passes, then warnings, then pass. Empty input
// yields an empty status; the caller leaves the check incomplete.
func AggregateStatus(verdicts []RuleVerdict) *EvaluationSummary {
	summary := &EvaluationSummary{}
	for _, v := range verdicts {
		switch v.Status {
		case domain.CheckStatusFail:
			summary.FailCount++
		case domain.CheckStatusWarning:
			summary.WarningCount++
		case domain.CheckStatusPass:
			summary.PassCount++
		}
	}
	switch {
	case len(verdicts) == 0:
		summary.OverallStatus = ""
	case summary.FailCount > 0:
		summary.OverallStatus = domain.CheckStatusFail
	case summary.WarningCount > 0:
		summary.OverallStatus = domain.CheckStatusWarning
	default:
		summary.OverallStatus = domain.CheckStatusPass
	}
	return summary
}

func buildEvaluationInstruction(combined domain.ExtractedLabelData, rules []domain.ResolvedRule) (string, error) {
	dataJSON, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal combined data: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a cannabis label compliance reviewer. Below is the structured data extracted from every panel of a product label, followed by the full list of rules to evaluate.\n\nEXTRACTED LABEL DATA:\n")
	b.Write(dataJSON)
	b.WriteString("\n\nRULES:\n")
	for _, rule := range rules {
		fmt.Fprintf(&b, "- id: %s\n  name: %s\n  check: %s\n", rule.ID, rule.Name, rule.ValidationPrompt)
	}
	b.WriteString(`
Evaluate EVERY rule against the extracted data. For each rule return:
- rule_id: the id exactly as given above
- status: "pass" when the requirement is met, "fail" when it is clearly violated or required information is absent, "warning" when it is partially met or too ambiguous to decide
- found_value: what the label actually shows for this rule, or null
- expected_value: what the rule requires, or null
- explanation: one or two sentences justifying the status

Return a JSON object {"results": [...]} with one entry per rule, in the order given. Return JSON only.`)
	return b.String(), nil
}

func evaluationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"rule_id":        map[string]any{"type": "string"},
						"status":         map[string]any{"type": "string", "enum": []string{domain.CheckStatusPass, domain.CheckStatusWarning, domain.CheckStatusFail}},
						"found_value":    map[string]any{"type": []string{"string", "null"}},
						"expected_value": map[string]any{"type": []string{"string", "null"}},
						"explanation":    map[string]any{"type": "string"},
					},
					"required": []string{"rule_id", "status", "explanation"},
				},
			},
		},
		"required": []string{"results"},
	}
}

type rawVerdict struct {
	RuleID        string  `json:"rule_id"`
	Status        string  `json:"status"`
	FoundValue    *string `json:"found_value"`
	ExpectedValue *string `json:"expected_value"`
	Explanation   string  `json:"explanation"`
}

type rawVerdictList struct {
	Results []rawVerdict `json:"results"`
}

func (s *evaluatorService) Evaluate(ctx context.Context, panels []domain.ExtractedLabelData, rules []domain.ResolvedRule) ([]RuleVerdict, *EvaluationSummary, error) {
	if len(rules) == 0 {
		return nil, nil, fmt.Errorf("%w: no rules to evaluate", pkgerr.ErrInvalidArgument)
	}
	combined := domain.MergeExtractedPanels(panels)

	instruction, err := buildEvaluationInstruction(combined, rules)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", pkgerr.ErrUpstream, err)
	}
	raw, err := s.model.GenerateJSON(ctx, instruction, evaluationSchema())
	if err != nil {
		return nil, nil, err
	}

	var parsed rawVerdictList
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, nil, fmt.Errorf("%w: parse evaluation response: %v", pkgerr.ErrUpstream, err)
	}
	if len(parsed.Results) == 0 {
		return nil, nil, fmt.Errorf("%w: evaluation returned no verdicts", pkgerr.ErrUpstream)
	}

	byID := make(map[uuid.UUID]domain.ResolvedRule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
	}

	verdicts := make([]RuleVerdict, 0, len(parsed.Results))
	for i, rv := range parsed.Results {
		ruleID, parseErr := uuid.Parse(rv.RuleID)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("%w: verdict %d carries malformed rule id %q", pkgerr.ErrUpstream, i, rv.RuleID)
		}
		rule, known := byID[ruleID]
		if !known {
			return nil, nil, fmt.Errorf("%w: verdict %d references unknown rule %s", pkgerr.ErrUpstream, i, ruleID)
		}
		switch rv.Status {
		case domain.CheckStatusPass, domain.CheckStatusWarning, domain.CheckStatusFail:
		default:
			return nil, nil, fmt.Errorf("%w: verdict %d carries invalid status %q", pkgerr.ErrUpstream, i, rv.Status)
		}
		verdicts = append(verdicts, RuleVerdict{
			RuleID:          rule.ID,
			RuleName:        rule.Name,
			RuleDescription: rule.Description,
			RuleCategory:    rule.Category,
			Status:          rv.Status,
			FoundValue:      rv.FoundValue,
			ExpectedValue:   rv.ExpectedValue,
			Explanation:     rv.Explanation,
		})
	}

	summary := AggregateStatus(verdicts)
	s.log.Info("Evaluation complete",
		"rules", len(rules),
		"verdicts", len(verdicts),
		"overall_status", summary.OverallStatus,
	)
	return verdicts, summary, nil
}
