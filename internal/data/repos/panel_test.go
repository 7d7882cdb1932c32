package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/verdantiq/labelproof-backend/internal/data/repos/testutil"
	"github.com/verdantiq/labelproof-backend/internal/domain"
)

func TestPanelRepo_ListByCheckUploadOrder(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewPanelRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	owner := uuid.New()
	rs := testutil.SeedRuleSet(t, tx, owner)
	check := testutil.SeedCheck(t, tx, owner, rs.ID)

	// created_at defaults to now() with microsecond resolution; force
	// distinct timestamps so ordering is deterministic.
	first := testutil.SeedPanel(t, tx, check.ID, domain.PanelTypeFront)
	second := testutil.SeedPanel(t, tx, check.ID, domain.PanelTypeBack)
	if err := tx.Model(&domain.PanelUpload{}).Where("id = ?", second.ID).
		Update("created_at", first.CreatedAt.Add(time.Second)).Error; err != nil {
		t.Fatalf("bump created_at: %v", err)
	}

	panels, err := repo.ListByCheck(ctx, nil, check.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(panels) != 2 {
		t.Fatalf("expected 2 panels, got %d", len(panels))
	}
	if panels[0].ID != first.ID || panels[1].ID != second.ID {
		t.Fatalf("panels not in upload order: %s then %s", panels[0].PanelType, panels[1].PanelType)
	}
}

func TestPanelRepo_SetExtractedData(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewPanelRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	owner := uuid.New()
	rs := testutil.SeedRuleSet(t, tx, owner)
	check := testutil.SeedCheck(t, tx, owner, rs.ID)
	panel := testutil.SeedPanel(t, tx, check.ID, domain.PanelTypeFront)

	payload := datatypes.JSON(`{"rawText": "NET WT 3.5g", "extractionConfidence": {"overall": 0.95}}`)
	if err := repo.SetExtractedData(ctx, nil, panel.ID, payload); err != nil {
		t.Fatalf("set extracted data: %v", err)
	}

	panels, err := repo.ListByCheck(ctx, nil, check.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(panels) != 1 || len(panels[0].ExtractedData) == 0 {
		t.Fatalf("extracted data not persisted: %+v", panels)
	}

	data, err := domain.ParseExtractedLabelData(panels[0].ExtractedData)
	if err != nil {
		t.Fatalf("parse persisted data: %v", err)
	}
	if data.RawText() != "NET WT 3.5g" {
		t.Fatalf("unexpected rawText %q", data.RawText())
	}
}
