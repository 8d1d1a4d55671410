package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/civilregistry/backend/internal/config"
	"github.com/civilregistry/backend/internal/database/migrations"
)

// InitDB initializes the database connection with configuration and runs
// pending migrations
func InitDB(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrations.RunMigrations(db, log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Stores bundles the postgres-backed stores
type Stores struct {
	Users        *UserStore
	Applications *ApplicationStore
	Documents    *DocumentStore
	Payments     *PaymentStore
	Biometrics   *BiometricStore
}

// NewStores wires every store to db
func NewStores(db *gorm.DB) *Stores {
	return &Stores{
		Users:        NewUserStore(db),
		Applications: NewApplicationStore(db),
		Documents:    NewDocumentStore(db),
		Payments:     NewPaymentStore(db),
		Biometrics:   NewBiometricStore(db),
	}
}
