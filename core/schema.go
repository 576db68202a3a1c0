package core

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Schema evolution is an explicit, ordered migration list. Every step is
// additive and idempotent: it checks what already exists before changing
// anything, so a retry after a partial failure cannot corrupt the store and
// running EnsureSchema twice is a no-op. Steps never drop or rewrite rows.
type migration struct {
	Version int
	Name    string
	Apply   func(tx *gorm.DB) error
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create base tables",
		Apply:   createBaseTables,
	},
	{
		Version: 2,
		Name:    "add visitors.id_number",
		Apply:   addIDNumberColumn,
	},
	{
		Version: 3,
		Name:    "backfill company from organization",
		Apply:   backfillCompany,
	},
}

// EnsureSchema brings the store up to the current schema version before any
// other access. Failures are wrapped in *SchemaError and are fatal to the
// caller; nothing here is retried.
func (dm *DatabaseManager) EnsureSchema() error {
	return dm.Exec(func(db *gorm.DB) error {
		if !db.Migrator().HasTable(&SchemaMigration{}) {
			if err := db.Migrator().CreateTable(&SchemaMigration{}); err != nil {
				return &SchemaError{Step: "create schema_migrations", Err: err}
			}
		}

		applied := map[int]bool{}
		var rows []SchemaMigration
		if err := db.Find(&rows).Error; err != nil {
			return &SchemaError{Step: "read schema_migrations", Err: err}
		}
		for _, row := range rows {
			applied[row.Version] = true
		}

		for _, m := range migrations {
			if applied[m.Version] {
				continue
			}
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := m.Apply(tx); err != nil {
					return err
				}
				return tx.Create(&SchemaMigration{
					Version:   m.Version,
					Name:      m.Name,
					AppliedAt: time.Now(),
				}).Error
			})
			if err != nil {
				return &SchemaError{Step: fmt.Sprintf("%d (%s)", m.Version, m.Name), Err: err}
			}
		}

		return nil
	})
}

func createBaseTables(tx *gorm.DB) error {
	for _, model := range []interface{}{&VisitorRecord{}, &LicenseRecord{}, &BlacklistEntry{}} {
		if tx.Migrator().HasTable(model) {
			continue
		}
		if err := tx.Migrator().CreateTable(model); err != nil {
			return err
		}
	}

	// Indices for the hot lookups: day-scoped history, identifier searches,
	// the active-visitor filter and pass uniqueness checks.
	indices := map[string]string{
		"idx_visitors_checkin":  "CREATE INDEX IF NOT EXISTS idx_visitors_checkin ON visitors (check_in_time)",
		"idx_visitors_checkout": "CREATE INDEX IF NOT EXISTS idx_visitors_checkout ON visitors (check_out_time)",
		"idx_visitors_nric":     "CREATE INDEX IF NOT EXISTS idx_visitors_nric ON visitors (nric)",
		"idx_visitors_hp":       "CREATE INDEX IF NOT EXISTS idx_visitors_hp ON visitors (hp_no)",
		"idx_visitors_pass":     "CREATE INDEX IF NOT EXISTS idx_visitors_pass ON visitors (pass_number)",
	}
	for _, stmt := range indices {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// id_number (physical badge number) arrived after the first release; older
// database files will not have the column.
func addIDNumberColumn(tx *gorm.DB) error {
	if tx.Migrator().HasColumn(&VisitorRecord{}, "id_number") {
		return nil
	}
	return tx.Migrator().AddColumn(&VisitorRecord{}, "IDNumber")
}

// company superseded the legacy organization column. Copy organization into
// company where company was never written; organization itself stays
// untouched so historical rows keep their original value.
func backfillCompany(tx *gorm.DB) error {
	if !tx.Migrator().HasColumn(&VisitorRecord{}, "company") {
		if err := tx.Migrator().AddColumn(&VisitorRecord{}, "Company"); err != nil {
			return err
		}
	}
	return tx.Exec(
		`UPDATE visitors SET company = organization
		 WHERE (company IS NULL OR company = '')
		   AND organization IS NOT NULL AND organization != ''`,
	).Error
}
