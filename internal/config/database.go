package config

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/models"
)

// InitDB opens the database, migrates the schema, and installs the partial
// unique indexes that make the at-most-one-confirmed-match invariant hold
// under concurrent writers. The repository-level checks detect conflicts
// politely; these indexes are what actually enforces them.
func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	err = db.AutoMigrate(
		&models.BankTransaction{},
		&models.FinancialRecord{},
		&models.Match{},
		&models.MatchAuditLog{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_confirmed_tx
			ON matches (transaction_id) WHERE status = 'confirmed'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_confirmed_record
			ON matches (record_id) WHERE status = 'confirmed'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_pairing
			ON matches (transaction_id, record_id)`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	}
	return db, nil
}
