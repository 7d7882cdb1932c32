package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/data/repos"
	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

// CheckOrchestrator drives one compliance check through
// resolve, extract, evaluate, persist. A failure in any of those stages
// rolls the whole check back by deleting its row (panels and results
// cascade with it); a failed check is never visible as partially complete.
// Request validation happens before the stages start and does not touch
// the check.
type CheckOrchestrator interface {
	RunAnalysis(ctx context.Context, ownerID, checkID uuid.UUID) (*domain.ComplianceCheck, error)
}

type checkOrchestrator struct {
	db          *gorm.DB
	log         *logger.Logger
	checkRepo   repos.CheckRepo
	panelRepo   repos.PanelRepo
	resultRepo  repos.ResultRepo
	ruleSetRepo repos.RuleSetRepo
	resolver    RuleResolver
	extractor   ExtractionService
	evaluator   EvaluatorService
	bucket      BucketService
}

func NewCheckOrchestrator(
	db *gorm.DB,
	baseLog *logger.Logger,
	checkRepo repos.CheckRepo,
	panelRepo repos.PanelRepo,
	resultRepo repos.ResultRepo,
	ruleSetRepo repos.RuleSetRepo,
	resolver RuleResolver,
	extractor ExtractionService,
	evaluator EvaluatorService,
	bucket BucketService,
) CheckOrchestrator {
	return &checkOrchestrator{
		db:          db,
		log:         baseLog.With("service", "CheckOrchestrator"),
		checkRepo:   checkRepo,
		panelRepo:   panelRepo,
		resultRepo:  resultRepo,
		ruleSetRepo: ruleSetRepo,
		resolver:    resolver,
		extractor:   extractor,
		evaluator:   evaluator,
		bucket:      bucket,
	}
}

func (s *checkOrchestrator) RunAnalysis(ctx context.Context, ownerID, checkID uuid.UUID) (*domain.ComplianceCheck, error) {
	check, err := s.checkRepo.GetByID(ctx, nil, checkID)
	if err != nil {
		return nil, err
	}
	if check.OwnerID != ownerID {
		return nil, pkgerr.ErrNotFound
	}

	// A check with nothing to analyze is a caller mistake, not a pipeline
	// failure; it must not delete the check.
	panels, err := s.panelRepo.ListByCheck(ctx, nil, check.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list panels: %v", pkgerr.ErrPersistence, err)
	}
	if len(panels) == 0 {
		return nil, fmt.Errorf("%w: check has no panel uploads", pkgerr.ErrInvalidArgument)
	}

	if err := s.runPipeline(ctx, check, panels); err != nil {
		s.rollback(ctx, checkID, err)
		return nil, err
	}

	// The check is committed complete at this point. A failed read here
	// must surface, but never trigger rollback.
	return s.checkRepo.GetByIDWithDetails(ctx, nil, checkID)
}

func (s *checkOrchestrator) runPipeline(ctx context.Context, check *domain.ComplianceCheck, panels []*domain.PanelUpload) error {
	ruleSet, err := s.ruleSetRepo.GetByID(ctx, nil, check.RuleSetID)
	if err != nil {
		return err
	}

	rules, provenance, err := s.resolver.ResolveRules(ctx, ruleSet)
	if err != nil {
		return err
	}
	s.log.Info("Rules resolved",
		"check_id", check.ID,
		"provenance", provenance,
		"rule_count", len(rules),
	)

	// Sequential extraction, upload order. Scalar merge collisions resolve
	// last-write-wins, so ordering here is part of the contract.
	extracted := make([]domain.ExtractedLabelData, 0, len(panels))
	for _, panel := range panels {
		image, err := s.bucket.DownloadFile(ctx, panel.StorageKey)
		if err != nil {
			return fmt.Errorf("%w: download panel %s: %v", pkgerr.ErrUpstream, panel.ID, err)
		}
		data, err := s.extractor.ExtractPanel(ctx, image, panel.MimeType, panel.PanelType, ruleSet.ProductType, rules)
		if err != nil {
			return err
		}
		encoded, err := data.JSON()
		if err != nil {
			return fmt.Errorf("%w: encode extracted data: %v", pkgerr.ErrUpstream, err)
		}
		if err := s.panelRepo.SetExtractedData(ctx, nil, panel.ID, datatypes.JSON(encoded)); err != nil {
			return fmt.Errorf("%w: persist extracted data: %v", pkgerr.ErrPersistence, err)
		}
		extracted = append(extracted, data)
	}

	verdicts, summary, err := s.evaluator.Evaluate(ctx, extracted, rules)
	if err != nil {
		return err
	}

	results := make([]*domain.CheckResult, 0, len(verdicts))
	for _, v := range verdicts {
		if provenance == domain.RuleProvenancePersisted {
			results = append(results, domain.NewPersistedResult(
				check.ID, v.RuleID, v.Status, v.FoundValue, v.ExpectedValue, v.Explanation,
			))
		} else {
			results = append(results, domain.NewGeneratedResult(
				check.ID, v.RuleName, v.RuleDescription, v.RuleCategory,
				v.Status, v.FoundValue, v.ExpectedValue, v.Explanation,
			))
		}
	}

	// A re-run replaces prior results rather than accumulating them; results
	// and the completion update land in one transaction.
	completedAt := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resultRepo.DeleteByCheck(ctx, tx, check.ID); err != nil {
			return err
		}
		if _, err := s.resultRepo.CreateBatch(ctx, tx, results); err != nil {
			return err
		}
		return s.checkRepo.Complete(ctx, tx, check.ID,
			summary.OverallStatus,
			summary.PassCount, summary.WarningCount, summary.FailCount,
			completedAt,
		)
	})
	if err != nil {
		return fmt.Errorf("%w: persist results: %v", pkgerr.ErrPersistence, err)
	}

	s.log.Info("Check completed",
		"check_id", check.ID,
		"overall_status", summary.OverallStatus,
		"pass", summary.PassCount,
		"warning", summary.WarningCount,
		"fail", summary.FailCount,
	)
	return nil
}

// rollback deletes the whole check. Cleanup failure is logged, never
// returned: it must not mask the pipeline error.
func (s *checkOrchestrator) rollback(ctx context.Context, checkID uuid.UUID, cause error) {
	s.log.Warn("Pipeline failed, rolling back check",
		"check_id", checkID,
		"error", cause.Error(),
	)
	if err := s.checkRepo.DeleteByID(ctx, nil, checkID); err != nil {
		s.log.Error("rollback delete failed", "check_id", checkID, "error", err)
	}
}
