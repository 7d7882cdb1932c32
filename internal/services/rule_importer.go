package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verdantiq/labelproof-backend/internal/data/repos"
	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/envutil"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

// ImportSummary reports what a generation pass did. Each rule row commits
// independently, so a failure partway through leaves earlier work applied.
type ImportSummary struct {
	Added     int    `json:"added"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	SourceURL string `json:"source_url"`
}

type RuleImporter interface {
	ImportRules(ctx context.Context, ownerID, ruleSetID uuid.UUID) (*ImportSummary, error)
}

type existingRulePayload struct {
	RuleName         string `json:"rule_name"`
	RuleDescription  string `json:"rule_description"`
	RuleTextCitation string `json:"rule_text_citation"`
}

type extractRulesRequest struct {
	State         string                `json:"state"`
	ProductType   string                `json:"product_type"`
	ExistingRules []existingRulePayload `json:"existing_rules"`
}

type extractedRule struct {
	RuleName         string `json:"rule_name"`
	RuleDescription  string `json:"rule_description"`
	RuleTextCitation string `json:"rule_text_citation"`
	Status           string `json:"status"`
	ChangeReason     string `json:"change_reason"`
}

type extractRulesResponse struct {
	Success             bool            `json:"success"`
	State               string          `json:"state"`
	ProductType         string          `json:"product_type"`
	SourceURL           string          `json:"source_url"`
	TotalRulesExtracted int             `json:"total_rules_extracted"`
	Rules               []extractedRule `json:"rules"`
	Error               string          `json:"error,omitempty"`
}

type ruleImporter struct {
	log         *logger.Logger
	ruleSetRepo repos.RuleSetRepo
	ruleRepo    repos.RuleRepo

	extractorURL string
	httpClient   *http.Client
	maxAttempts  int
	baseBackoff  time.Duration
}

func NewRuleImporter(baseLog *logger.Logger, ruleSetRepo repos.RuleSetRepo, ruleRepo repos.RuleRepo) RuleImporter {
	log := baseLog.With("service", "RuleImporter")
	extractorURL := envutil.GetEnv("RULE_EXTRACTOR_URL", "http://localhost:8090", log)

	// The extraction service drives a slow upstream model of its own; a full
	// pass can block for minutes, hence the long-poll read timeout.
	timeoutMin := envutil.GetEnvAsInt("RULE_EXTRACTOR_TIMEOUT_MINUTES", 10, log)

	return &ruleImporter{
		log:          log,
		ruleSetRepo:  ruleSetRepo,
		ruleRepo:     ruleRepo,
		extractorURL: strings.TrimRight(extractorURL, "/"),
		httpClient:   &http.Client{Timeout: time.Duration(timeoutMin) * time.Minute},
		maxAttempts:  3,
		baseBackoff:  1 * time.Second,
	}
}

// Ordered keyword table for category inference; first match wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{domain.CategoryTHCContent, []string{"thc", "potency", "cannabinoid"}},
	{domain.CategoryCBDContent, []string{"cbd"}},
	{domain.CategoryWarnings, []string{"warning", "pregnan", "impair", "intoxicat"}},
	{domain.CategoryChildSafety, []string{"child", "resistant", "minor"}},
	{domain.CategoryNetWeight, []string{"net weight", "weight", "gram", "quantity"}},
	{domain.CategoryIngredients, []string{"ingredient", "allergen"}},
	{domain.CategoryTesting, []string{"test", "lab", "batch", "analys"}},
	{domain.CategoryLicensing, []string{"license", "licens", "permit"}},
}

func inferCategory(name, description string) string {
	haystack := strings.ToLower(name + " " + description)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				return entry.category
			}
		}
	}
	return domain.CategoryGeneral
}

func isTransientConnErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := err.Error()
	for _, fragment := range []string{
		"connection reset",
		"connection refused",
		"i/o timeout",
		"timeout awaiting response headers",
		"deadline exceeded",
		"unexpected EOF",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func (s *ruleImporter) callExtractor(ctx context.Context, reqBody extractRulesRequest) (*extractRulesResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	var lastErr error
	backoff := s.baseBackoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.extractorURL+"/extract-rules", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !isTransientConnErr(err) || attempt == s.maxAttempts {
				return nil, fmt.Errorf("%w: extraction service: %v", pkgerr.ErrUpstream, err)
			}
			s.log.Warn("Extraction service call retrying",
				"attempt", attempt,
				"max_attempts", s.maxAttempts,
				"sleep", backoff.String(),
				"error", err.Error(),
			)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("%w: read extraction response: %v", pkgerr.ErrUpstream, readErr)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: extraction service http %d: %s", pkgerr.ErrUpstream, resp.StatusCode, string(raw))
		}
		var parsed extractRulesResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("%w: decode extraction response: %v", pkgerr.ErrUpstream, err)
		}
		if !parsed.Success {
			return nil, fmt.Errorf("%w: extraction service reported failure: %s", pkgerr.ErrUpstream, parsed.Error)
		}
		return &parsed, nil
	}
	return nil, fmt.Errorf("%w: extraction service: %v", pkgerr.ErrUpstream, lastErr)
}

func (s *ruleImporter) ImportRules(ctx context.Context, ownerID, ruleSetID uuid.UUID) (*ImportSummary, error) {
	ruleSet, err := s.ruleSetRepo.GetByID(ctx, nil, ruleSetID)
	if err != nil {
		return nil, err
	}
	if ruleSet.OwnerID != ownerID {
		return nil, pkgerr.ErrNotFound
	}

	existing, err := s.ruleRepo.ListByRuleSet(ctx, nil, ruleSetID)
	if err != nil {
		return nil, fmt.Errorf("%w: list existing rules: %v", pkgerr.ErrPersistence, err)
	}
	existingPayload := make([]existingRulePayload, 0, len(existing))
	for _, r := range existing {
		existingPayload = append(existingPayload, existingRulePayload{
			RuleName:         r.Name,
			RuleDescription:  r.Description,
			RuleTextCitation: r.SourceCitation,
		})
	}

	s.log.Info("Calling rule extraction service",
		"rule_set_id", ruleSetID,
		"state", ruleSet.StateName,
		"product_type", ruleSet.ProductType,
		"existing_rules", len(existingPayload),
	)
	resp, err := s.callExtractor(ctx, extractRulesRequest{
		State:         ruleSet.StateName,
		ProductType:   ruleSet.ProductType,
		ExistingRules: existingPayload,
	})
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{SourceURL: resp.SourceURL}
	for _, candidate := range resp.Rules {
		// The service decides new/updated/unchanged; it is not recomputed here.
		switch candidate.Status {
		case domain.GenerationStatusUnchanged:
			summary.Skipped++
		case domain.GenerationStatusUpdated:
			if err := s.applyUpdate(ctx, ruleSetID, candidate, summary); err != nil {
				return summary, err
			}
		case domain.GenerationStatusNew:
			if err := s.insertNew(ctx, ruleSetID, candidate); err != nil {
				return summary, err
			}
			summary.Added++
		default:
			s.log.Warn("Extraction service returned unknown status, skipping",
				"status", candidate.Status,
				"rule_name", candidate.RuleName,
			)
			summary.Skipped++
		}
	}

	s.log.Info("Rule import finished",
		"rule_set_id", ruleSetID,
		"added", summary.Added,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// applyUpdate locates the stored rule by exact citation match. When the
// citation drifted and no row matches, the candidate is inserted as new.
func (s *ruleImporter) applyUpdate(ctx context.Context, ruleSetID uuid.UUID, candidate extractedRule, summary *ImportSummary) error {
	existing, err := s.ruleRepo.GetByCitation(ctx, nil, ruleSetID, candidate.RuleTextCitation)
	if err != nil {
		if errors.Is(err, pkgerr.ErrNotFound) {
			if insErr := s.insertNew(ctx, ruleSetID, candidate); insErr != nil {
				return insErr
			}
			summary.Added++
			return nil
		}
		return fmt.Errorf("%w: lookup by citation: %v", pkgerr.ErrPersistence, err)
	}
	updates := map[string]interface{}{
		"name":              candidate.RuleName,
		"description":       candidate.RuleDescription,
		"category":          inferCategory(candidate.RuleName, candidate.RuleDescription),
		"generation_status": domain.GenerationStatusUpdated,
	}
	if err := s.ruleRepo.Update(ctx, nil, existing.ID, updates); err != nil {
		return fmt.Errorf("%w: update rule %s: %v", pkgerr.ErrPersistence, existing.ID, err)
	}
	summary.Updated++
	return nil
}

func (s *ruleImporter) insertNew(ctx context.Context, ruleSetID uuid.UUID, candidate extractedRule) error {
	rule := &domain.ComplianceRule{
		ID:               uuid.New(),
		RuleSetID:        ruleSetID,
		Name:             candidate.RuleName,
		Description:      candidate.RuleDescription,
		Category:         inferCategory(candidate.RuleName, candidate.RuleDescription),
		Severity:         domain.SeverityError,
		ValidationPrompt: fmt.Sprintf("Verify the label satisfies: %s", candidate.RuleDescription),
		SourceCitation:   candidate.RuleTextCitation,
		GenerationStatus: domain.GenerationStatusNew,
		Active:           true,
	}
	if _, err := s.ruleRepo.Create(ctx, nil, []*domain.ComplianceRule{rule}); err != nil {
		return fmt.Errorf("%w: insert rule %q: %v", pkgerr.ErrPersistence, candidate.RuleName, err)
	}
	return nil
}
