// Package db opens the gorm connection used as the credential and task store
package db

import (
	"bitwise74/task-api/internal/model"
	"bitwise74/task-api/pkg/util"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// New opens the database selected by driver ("sqlite" or "postgres") and
// migrates the schema.
func New(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = "database.db"
		}

		// Inside a docker container the sqlite file has to come from a volume
		if dsn != ":memory:" {
			if err := util.RequireMounted(dsn); err != nil {
				return nil, err
			}
		}

		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return nil, errors.New("no postgres connection string provided")
		}

		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database, %w", driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.User{}, model.Task{}, model.Token{}); err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return nil
}
