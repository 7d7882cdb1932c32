package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/data/repos"
	"github.com/verdantiq/labelproof-backend/internal/data/repos/testutil"
	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
)

type fakeResolver struct {
	rules      []domain.ResolvedRule
	provenance string
	err        error
}

func (f *fakeResolver) ResolveRules(ctx context.Context, ruleSet *domain.RuleSet) ([]domain.ResolvedRule, string, error) {
	return f.rules, f.provenance, f.err
}

type fakeExtractor struct {
	data domain.ExtractedLabelData
	err  error
}

func (f *fakeExtractor) ExtractPanel(ctx context.Context, image []byte, mimeType, panelType, productType string, rules []domain.ResolvedRule) (domain.ExtractedLabelData, error) {
	return f.data, f.err
}

type fakeEvaluator struct {
	verdicts []RuleVerdict
	err      error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, panels []domain.ExtractedLabelData, rules []domain.ResolvedRule) ([]RuleVerdict, *EvaluationSummary, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.verdicts, AggregateStatus(f.verdicts), nil
}

type fakeBucket struct {
	downloadErr error
}

func (f *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader, contentType string) error {
	return nil
}

func (f *fakeBucket) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return []byte{0xFF, 0xD8}, nil
}

func (f *fakeBucket) DeleteFile(ctx context.Context, key string) error { return nil }

func (f *fakeBucket) SignedUploadURL(key, contentType string, ttl time.Duration) (string, error) {
	return "https://storage.example.com/" + key, nil
}

func (f *fakeBucket) GetPublicURL(key string) string { return "https://cdn.example.com/" + key }

type orchestratorEnv struct {
	tx        *gorm.DB
	ownerID   uuid.UUID
	ruleSet   *domain.RuleSet
	rule      *domain.ComplianceRule
	check     *domain.ComplianceCheck
	checkRepo repos.CheckRepo
}

func newOrchestrator(t *testing.T, env *orchestratorEnv, resolver RuleResolver, extractor ExtractionService, evaluator EvaluatorService) CheckOrchestrator {
	t.Helper()
	log := testutil.Logger(t)
	return NewCheckOrchestrator(
		env.tx, log,
		env.checkRepo,
		repos.NewPanelRepo(env.tx, log),
		repos.NewResultRepo(env.tx, log),
		repos.NewRuleSetRepo(env.tx, log),
		resolver, extractor, evaluator, &fakeBucket{},
	)
}

func setupOrchestratorEnv(t *testing.T, panelCount int) *orchestratorEnv {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	ownerID := uuid.New()
	ruleSet := testutil.SeedRuleSet(t, tx, ownerID)
	rule := testutil.SeedRule(t, tx, ruleSet.ID, "THC Disclosure")
	check := testutil.SeedCheck(t, tx, ownerID, ruleSet.ID)
	panelTypes := []string{domain.PanelTypeFront, domain.PanelTypeBack, domain.PanelTypeLeft}
	for i := 0; i < panelCount; i++ {
		testutil.SeedPanel(t, tx, check.ID, panelTypes[i%len(panelTypes)])
	}

	return &orchestratorEnv{
		tx:        tx,
		ownerID:   ownerID,
		ruleSet:   ruleSet,
		rule:      rule,
		check:     check,
		checkRepo: repos.NewCheckRepo(tx, log),
	}
}

func extractedFixture() domain.ExtractedLabelData {
	return domain.ExtractedLabelData{
		domain.ExtractedKeyRawText:    "NET WT 3.5g",
		domain.ExtractedKeyConfidence: map[string]any{"overall": 0.9},
	}
}

func TestRunAnalysis_PersistsResultsAndCompletes(t *testing.T) {
	env := setupOrchestratorEnv(t, 2)
	ctx := context.Background()

	resolved := domain.ResolvedFromRule(env.rule)
	resolver := &fakeResolver{rules: []domain.ResolvedRule{resolved}, provenance: domain.RuleProvenancePersisted}
	evaluator := &fakeEvaluator{verdicts: []RuleVerdict{
		{RuleID: env.rule.ID, RuleName: env.rule.Name, Status: domain.CheckStatusPass, Explanation: "present"},
	}}
	orch := newOrchestrator(t, env, resolver, &fakeExtractor{data: extractedFixture()}, evaluator)

	check, err := orch.RunAnalysis(ctx, env.ownerID, env.check.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.OverallStatus == nil || *check.OverallStatus != domain.CheckStatusPass {
		t.Fatalf("expected completed pass check, got %+v", check)
	}
	if check.PassCount != 1 || check.WarningCount != 0 || check.FailCount != 0 {
		t.Fatalf("unexpected counts: %+v", check)
	}
	if check.CompletedAt == nil {
		t.Fatalf("expected completed_at set")
	}
	if len(check.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(check.Results))
	}
	res := check.Results[0]
	if res.RuleID == nil || *res.RuleID != env.rule.ID || res.IsGeneratedRule {
		t.Fatalf("expected persisted-rule provenance: %+v", res)
	}

	// Extraction lands on the panel rows as it happens.
	var withData int64
	if err := env.tx.Model(&domain.PanelUpload{}).
		Where("check_id = ? AND extracted_data IS NOT NULL", env.check.ID).
		Count(&withData).Error; err != nil {
		t.Fatalf("count panels: %v", err)
	}
	if withData != 2 {
		t.Fatalf("expected extracted data on 2 panels, got %d", withData)
	}
}

func TestRunAnalysis_GeneratedProvenanceDenormalizesRules(t *testing.T) {
	env := setupOrchestratorEnv(t, 1)
	ctx := context.Background()

	generated := domain.ResolvedRule{
		ID:               uuid.New(),
		Name:             "Synth Warning Statement",
		Description:      "generated at check time",
		Category:         domain.CategoryWarnings,
		Severity:         domain.SeverityError,
		ValidationPrompt: "check it",
	}
	resolver := &fakeResolver{rules: []domain.ResolvedRule{generated}, provenance: domain.RuleProvenanceGenerated}
	evaluator := &fakeEvaluator{verdicts: []RuleVerdict{
		{
			RuleID:          generated.ID,
			RuleName:        generated.Name,
			RuleDescription: generated.Description,
			RuleCategory:    generated.Category,
			Status:          domain.CheckStatusWarning,
			Explanation:     "ambiguous",
		},
	}}
	orch := newOrchestrator(t, env, resolver, &fakeExtractor{data: extractedFixture()}, evaluator)

	check, err := orch.RunAnalysis(ctx, env.ownerID, env.check.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.OverallStatus == nil || *check.OverallStatus != domain.CheckStatusWarning {
		t.Fatalf("expected warning check, got %+v", check)
	}
	if len(check.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(check.Results))
	}
	res := check.Results[0]
	if res.RuleID != nil || !res.IsGeneratedRule {
		t.Fatalf("expected generated provenance: %+v", res)
	}
	if res.GeneratedRuleName != generated.Name || res.GeneratedRuleCategory != domain.CategoryWarnings {
		t.Fatalf("generated rule fields not denormalized: %+v", res)
	}
}

func TestRunAnalysis_FailureRollsBackCheck(t *testing.T) {
	env := setupOrchestratorEnv(t, 2)
	ctx := context.Background()

	resolver := &fakeResolver{rules: []domain.ResolvedRule{domain.ResolvedFromRule(env.rule)}, provenance: domain.RuleProvenancePersisted}
	evaluator := &fakeEvaluator{err: errors.New("model timed out")}
	orch := newOrchestrator(t, env, resolver, &fakeExtractor{data: extractedFixture()}, evaluator)

	if _, err := orch.RunAnalysis(ctx, env.ownerID, env.check.ID); err == nil {
		t.Fatalf("expected pipeline error")
	}

	var checks int64
	if err := env.tx.Model(&domain.ComplianceCheck{}).Where("id = ?", env.check.ID).Count(&checks).Error; err != nil {
		t.Fatalf("count checks: %v", err)
	}
	if checks != 0 {
		t.Fatalf("expected check deleted on failure, found %d rows", checks)
	}
	var panels int64
	if err := env.tx.Model(&domain.PanelUpload{}).Where("check_id = ?", env.check.ID).Count(&panels).Error; err != nil {
		t.Fatalf("count panels: %v", err)
	}
	if panels != 0 {
		t.Fatalf("expected panel uploads cascaded away, found %d rows", panels)
	}
}

func TestRunAnalysis_NoPanelsIsInvalidAndLeavesCheckIntact(t *testing.T) {
	env := setupOrchestratorEnv(t, 0)
	ctx := context.Background()

	orch := newOrchestrator(t, env,
		&fakeResolver{provenance: domain.RuleProvenancePersisted},
		&fakeExtractor{data: extractedFixture()},
		&fakeEvaluator{},
	)

	_, err := orch.RunAnalysis(ctx, env.ownerID, env.check.ID)
	if !errors.Is(err, pkgerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	// Rejecting the request must not delete the check; the caller fixes the
	// input and retries against the same check.
	var checks int64
	if err := env.tx.Model(&domain.ComplianceCheck{}).Where("id = ?", env.check.ID).Count(&checks).Error; err != nil {
		t.Fatalf("count checks: %v", err)
	}
	if checks != 1 {
		t.Fatalf("validation failure must not delete the check, found %d rows", checks)
	}

	// The same check analyzes fine once a panel arrives.
	testutil.SeedPanel(t, env.tx, env.check.ID, domain.PanelTypeFront)
	resolver := &fakeResolver{rules: []domain.ResolvedRule{domain.ResolvedFromRule(env.rule)}, provenance: domain.RuleProvenancePersisted}
	evaluator := &fakeEvaluator{verdicts: []RuleVerdict{
		{RuleID: env.rule.ID, RuleName: env.rule.Name, Status: domain.CheckStatusPass, Explanation: "present"},
	}}
	orch = newOrchestrator(t, env, resolver, &fakeExtractor{data: extractedFixture()}, evaluator)
	check, err := orch.RunAnalysis(ctx, env.ownerID, env.check.ID)
	if err != nil {
		t.Fatalf("retry after adding a panel: %v", err)
	}
	if check.OverallStatus == nil || *check.OverallStatus != domain.CheckStatusPass {
		t.Fatalf("expected completed check on retry, got %+v", check)
	}
}

// brokenReadCheckRepo fails the detail reload while leaving every write path
// on the real repo.
type brokenReadCheckRepo struct {
	repos.CheckRepo
	deletes int
}

func (f *brokenReadCheckRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ComplianceCheck, error) {
	return nil, errors.New("connection reset while reloading")
}

func (f *brokenReadCheckRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.deletes++
	return f.CheckRepo.DeleteByID(ctx, tx, id)
}

func TestRunAnalysis_ReloadFailureKeepsCompletedCheck(t *testing.T) {
	env := setupOrchestratorEnv(t, 1)
	ctx := context.Background()

	broken := &brokenReadCheckRepo{CheckRepo: env.checkRepo}
	env.checkRepo = broken

	resolver := &fakeResolver{rules: []domain.ResolvedRule{domain.ResolvedFromRule(env.rule)}, provenance: domain.RuleProvenancePersisted}
	evaluator := &fakeEvaluator{verdicts: []RuleVerdict{
		{RuleID: env.rule.ID, RuleName: env.rule.Name, Status: domain.CheckStatusPass, Explanation: "present"},
	}}
	orch := newOrchestrator(t, env, resolver, &fakeExtractor{data: extractedFixture()}, evaluator)

	if _, err := orch.RunAnalysis(ctx, env.ownerID, env.check.ID); err == nil {
		t.Fatalf("expected reload error surfaced")
	}
	if broken.deletes != 0 {
		t.Fatalf("a failed reload after commit must not delete the check, saw %d deletes", broken.deletes)
	}

	// The completed work is all still there.
	var stored domain.ComplianceCheck
	if err := env.tx.Where("id = ?", env.check.ID).First(&stored).Error; err != nil {
		t.Fatalf("load check: %v", err)
	}
	if stored.OverallStatus == nil || *stored.OverallStatus != domain.CheckStatusPass || stored.CompletedAt == nil {
		t.Fatalf("check not committed complete: %+v", stored)
	}
	var results int64
	if err := env.tx.Model(&domain.CheckResult{}).Where("check_id = ?", env.check.ID).Count(&results).Error; err != nil {
		t.Fatalf("count results: %v", err)
	}
	if results != 1 {
		t.Fatalf("expected persisted results to survive, got %d", results)
	}
}

func TestRunAnalysis_NotOwnedLeavesCheckIntact(t *testing.T) {
	env := setupOrchestratorEnv(t, 1)
	ctx := context.Background()

	orch := newOrchestrator(t, env,
		&fakeResolver{provenance: domain.RuleProvenancePersisted},
		&fakeExtractor{data: extractedFixture()},
		&fakeEvaluator{},
	)

	_, err := orch.RunAnalysis(ctx, uuid.New(), env.check.ID)
	if !errors.Is(err, pkgerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var checks int64
	if err := env.tx.Model(&domain.ComplianceCheck{}).Where("id = ?", env.check.ID).Count(&checks).Error; err != nil {
		t.Fatalf("count checks: %v", err)
	}
	if checks != 1 {
		t.Fatalf("ownership failure must not delete the check, found %d rows", checks)
	}
}

func TestRunAnalysis_RerunReplacesResults(t *testing.T) {
	env := setupOrchestratorEnv(t, 1)
	ctx := context.Background()

	stale := domain.NewPersistedResult(env.check.ID, env.rule.ID, domain.CheckStatusFail, nil, nil, "stale verdict")
	if err := env.tx.Create(stale).Error; err != nil {
		t.Fatalf("seed stale result: %v", err)
	}

	resolver := &fakeResolver{rules: []domain.ResolvedRule{domain.ResolvedFromRule(env.rule)}, provenance: domain.RuleProvenancePersisted}
	evaluator := &fakeEvaluator{verdicts: []RuleVerdict{
		{RuleID: env.rule.ID, RuleName: env.rule.Name, Status: domain.CheckStatusPass, Explanation: "fresh verdict"},
	}}
	orch := newOrchestrator(t, env, resolver, &fakeExtractor{data: extractedFixture()}, evaluator)

	check, err := orch.RunAnalysis(ctx, env.ownerID, env.check.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(check.Results) != 1 {
		t.Fatalf("expected old results replaced, got %d rows", len(check.Results))
	}
	if check.Results[0].Explanation != "fresh verdict" {
		t.Fatalf("stale result survived: %+v", check.Results[0])
	}
}
