package migrations

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// migrationsList holds all migrations in registration order
var migrationsList []*gormigrate.Migration

// RunMigrations runs all pending database migrations
func RunMigrations(db *gorm.DB, log logrus.FieldLogger) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("could not migrate: %w", err)
	}
	log.WithField("count", len(migrationsList)).Info("migrations ran successfully")
	return nil
}

// List returns the registered migrations
func List() []*gormigrate.Migration {
	return append([]*gormigrate.Migration(nil), migrationsList...)
}
