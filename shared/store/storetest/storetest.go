// Package storetest provides in-memory databases for tests.
package storetest

import (
	"errors"
	"testing"

	"github.com/pavitra93/colony-rent-manager/shared/store"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrInjected is returned by callbacks installed with FailOn
var ErrInjected = errors.New("injected store failure")

// NewDB opens a migrated in-memory sqlite database
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, store.Migrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// NewStore returns a GormStore over a fresh in-memory database
func NewStore(t *testing.T) (*store.GormStore, *gorm.DB) {
	t.Helper()
	db := NewDB(t)
	return store.New(db), db
}

// FailOn makes every create, update or delete against table fail
func FailOn(t *testing.T, db *gorm.DB, op, table string) {
	t.Helper()

	name := "storetest:fail_" + op + "_" + table
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(ErrInjected)
		}
	}

	var err error
	switch op {
	case "create":
		err = db.Callback().Create().Before("gorm:create").Register(name, fail)
	case "update":
		err = db.Callback().Update().Before("gorm:update").Register(name, fail)
	case "delete":
		err = db.Callback().Delete().Before("gorm:delete").Register(name, fail)
	default:
		t.Fatalf("unknown operation %q", op)
	}
	require.NoError(t, err)
}
