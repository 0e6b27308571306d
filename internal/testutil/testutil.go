// Package testutil holds helpers shared by tests of several packages
package testutil

import (
	"bitwise74/task-api/db"
	"bitwise74/task-api/internal/model"
	"bitwise74/task-api/pkg/security"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database. The pool is capped at
// one connection because every new connection to :memory: is a fresh database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return gdb
}

// Hasher is an argon2 hasher cheap enough for tests
func Hasher() *security.ArgonHash {
	return &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

// FakeUser returns an unsaved user with random but valid fields
func FakeUser() *model.User {
	return &model.User{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: gofakeit.Password(true, true, true, false, false, 12),
		Age:      gofakeit.Number(1, 99),
	}
}
