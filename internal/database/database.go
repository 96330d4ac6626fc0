package database

import (
	"fmt"

	"github.com/ksred/vendor-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Cascade deletes for vendor children rely on foreign key enforcement
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&types.Vendor{},
		&types.PurchaseOrder{},
		&types.HistoricalPerformance{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
