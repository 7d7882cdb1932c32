package db

import (
	"fmt"

	"github.com/verdantiq/labelproof-backend/internal/domain"
)

// AutoMigrateAll migrates every table. Order matters for FK creation:
// parents before children.
func (s *PostgresService) AutoMigrateAll() error {
	if err := s.db.AutoMigrate(
		&domain.RuleSet{},
		&domain.ComplianceRule{},
		&domain.ComplianceCheck{},
		&domain.PanelUpload{},
		&domain.CheckResult{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
