// Package migrations creates and upgrades the snapshot schema.
package migrations

import (
	"fmt"

	"github.com/deliverypulse/engine/internal/models"
	"gorm.io/gorm"
)

// Run executes all database migrations.
func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't express.
// Every statement here must run on both PostgreSQL and SQLite.
func runCustomMigrations(db *gorm.DB) error {
	migrations := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"project search indexes", addProjectSearchIndexes},
		{"snapshot report indexes", addSnapshotReportIndexes},
	}

	for _, m := range migrations {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	return nil
}

// addProjectSearchIndexes backs the case-insensitive project search.
func addProjectSearchIndexes(db *gorm.DB) error {
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_projects_lower_name ON projects (LOWER(project_name))`,
		`CREATE INDEX IF NOT EXISTS idx_projects_lower_client ON projects (LOWER(client))`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// addSnapshotReportIndexes covers the newest-first scans of the report queries.
func addSnapshotReportIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshots_project_recent
		ON project_snapshots (project_id, snapshot_year DESC, snapshot_week DESC, snapshot_at DESC)
	`).Error
}
