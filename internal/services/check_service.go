package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantiq/labelproof-backend/internal/data/repos"
	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

type CreateCheckInput struct {
	RuleSetID   uuid.UUID `json:"rule_set_id"`
	ProductName string    `json:"product_name"`
}

type AddPanelInput struct {
	PanelType    string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	File         io.Reader
}

type SignedPanelUpload struct {
	Panel     *domain.PanelUpload `json:"panel"`
	UploadURL string              `json:"upload_url"`
}

type CheckService interface {
	CreateCheck(ctx context.Context, ownerID uuid.UUID, input CreateCheckInput) (*domain.ComplianceCheck, error)
	ListChecks(ctx context.Context, ownerID uuid.UUID) ([]*domain.ComplianceCheck, error)
	GetCheck(ctx context.Context, ownerID, checkID uuid.UUID) (*domain.ComplianceCheck, error)
	DeleteCheck(ctx context.Context, ownerID, checkID uuid.UUID) error
	AddPanel(ctx context.Context, ownerID, checkID uuid.UUID, input AddPanelInput) (*domain.PanelUpload, error)
	SignPanelUpload(ctx context.Context, ownerID, checkID uuid.UUID, panelType, originalName, mimeType string) (*SignedPanelUpload, error)
}

type checkService struct {
	db          *gorm.DB
	log         *logger.Logger
	checkRepo   repos.CheckRepo
	panelRepo   repos.PanelRepo
	ruleSetRepo repos.RuleSetRepo
	bucket      BucketService
}

func NewCheckService(
	db *gorm.DB,
	baseLog *logger.Logger,
	checkRepo repos.CheckRepo,
	panelRepo repos.PanelRepo,
	ruleSetRepo repos.RuleSetRepo,
	bucket BucketService,
) CheckService {
	return &checkService{
		db:          db,
		log:         baseLog.With("service", "CheckService"),
		checkRepo:   checkRepo,
		panelRepo:   panelRepo,
		ruleSetRepo: ruleSetRepo,
		bucket:      bucket,
	}
}

func (s *checkService) ownedCheck(ctx context.Context, ownerID, checkID uuid.UUID) (*domain.ComplianceCheck, error) {
	check, err := s.checkRepo.GetByID(ctx, nil, checkID)
	if err != nil {
		return nil, err
	}
	if check.OwnerID != ownerID {
		return nil, pkgerr.ErrNotFound
	}
	return check, nil
}

func (s *checkService) CreateCheck(ctx context.Context, ownerID uuid.UUID, input CreateCheckInput) (*domain.ComplianceCheck, error) {
	if input.RuleSetID == uuid.Nil {
		return nil, fmt.Errorf("%w: rule_set_id is required", pkgerr.ErrInvalidArgument)
	}
	ruleSet, err := s.ruleSetRepo.GetByID(ctx, nil, input.RuleSetID)
	if err != nil {
		return nil, err
	}
	if ruleSet.OwnerID != ownerID {
		return nil, pkgerr.ErrNotFound
	}
	check := &domain.ComplianceCheck{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		RuleSetID:   input.RuleSetID,
		ProductName: input.ProductName,
	}
	return s.checkRepo.Create(ctx, nil, check)
}

func (s *checkService) ListChecks(ctx context.Context, ownerID uuid.UUID) ([]*domain.ComplianceCheck, error) {
	return s.checkRepo.ListByOwner(ctx, nil, ownerID)
}

func (s *checkService) GetCheck(ctx context.Context, ownerID, checkID uuid.UUID) (*domain.ComplianceCheck, error) {
	if _, err := s.ownedCheck(ctx, ownerID, checkID); err != nil {
		return nil, err
	}
	return s.checkRepo.GetByIDWithDetails(ctx, nil, checkID)
}

func (s *checkService) DeleteCheck(ctx context.Context, ownerID, checkID uuid.UUID) error {
	if _, err := s.ownedCheck(ctx, ownerID, checkID); err != nil {
		return err
	}
	return s.checkRepo.DeleteByID(ctx, nil, checkID)
}

// AddPanel buffers the upload through the server: blob first, row second, so
// the PanelUpload row never points at a missing object.
func (s *checkService) AddPanel(ctx context.Context, ownerID, checkID uuid.UUID, input AddPanelInput) (*domain.PanelUpload, error) {
	check, err := s.ownedCheck(ctx, ownerID, checkID)
	if err != nil {
		return nil, err
	}
	if !domain.ValidPanelType(input.PanelType) {
		return nil, fmt.Errorf("%w: invalid panel_type %q", pkgerr.ErrInvalidArgument, input.PanelType)
	}
	if input.File == nil {
		return nil, fmt.Errorf("%w: no file provided", pkgerr.ErrInvalidArgument)
	}

	key := PanelStorageKey(ownerID, input.PanelType, input.OriginalName)
	if err := s.bucket.UploadFile(ctx, key, input.File, input.MimeType); err != nil {
		return nil, fmt.Errorf("%w: upload panel: %v", pkgerr.ErrUpstream, err)
	}

	panel := &domain.PanelUpload{
		ID:           uuid.New(),
		CheckID:      check.ID,
		PanelType:    input.PanelType,
		StorageKey:   key,
		FileURL:      s.bucket.GetPublicURL(key),
		OriginalName: input.OriginalName,
		MimeType:     input.MimeType,
		SizeBytes:    input.SizeBytes,
	}
	created, err := s.panelRepo.Create(ctx, nil, panel)
	if err != nil {
		// best-effort blob cleanup, failure only logged
		if delErr := s.bucket.DeleteFile(ctx, key); delErr != nil {
			s.log.Error("failed to clean up orphaned panel blob", "error", delErr, "storage_key", key)
		}
		return nil, fmt.Errorf("%w: create panel row: %v", pkgerr.ErrPersistence, err)
	}
	return created, nil
}

// SignPanelUpload issues a short-lived direct-to-bucket upload URL and
// records the panel row up front. Functionally equivalent to the buffered
// path; the pipeline only cares that the blob URL is durable before
// extraction starts.
func (s *checkService) SignPanelUpload(ctx context.Context, ownerID, checkID uuid.UUID, panelType, originalName, mimeType string) (*SignedPanelUpload, error) {
	check, err := s.ownedCheck(ctx, ownerID, checkID)
	if err != nil {
		return nil, err
	}
	if !domain.ValidPanelType(panelType) {
		return nil, fmt.Errorf("%w: invalid panel_type %q", pkgerr.ErrInvalidArgument, panelType)
	}

	key := PanelStorageKey(ownerID, panelType, originalName)
	uploadURL, err := s.bucket.SignedUploadURL(key, mimeType, 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%w: sign upload url: %v", pkgerr.ErrUpstream, err)
	}

	panel := &domain.PanelUpload{
		ID:           uuid.New(),
		CheckID:      check.ID,
		PanelType:    panelType,
		StorageKey:   key,
		FileURL:      s.bucket.GetPublicURL(key),
		OriginalName: originalName,
		MimeType:     mimeType,
	}
	created, err := s.panelRepo.Create(ctx, nil, panel)
	if err != nil {
		return nil, fmt.Errorf("%w: create panel row: %v", pkgerr.ErrPersistence, err)
	}
	return &SignedPanelUpload{Panel: created, UploadURL: uploadURL}, nil
}
