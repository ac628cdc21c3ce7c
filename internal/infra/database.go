package infra

import (
	"fmt"

	"batchtrack/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and runs AutoMigrate
// for all tables. The unique indexes declared on the models (ekn_code,
// brigade/work-center names, the (batch_number, batch_date) batch key) are the
// store-level backstop for every uniqueness rule the services enforce.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return db, nil
}

// RunMigrations applies the schema; also used by the integration test suite.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Brigade{},
		&model.WorkCenter{},
		&model.Task{},
		&model.Product{},
	)
}
