package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemorySQLite is a DSN for a private in-memory SQLite database.
const MemorySQLite = "file::memory:"

// OpenSQLite opens the embedded single-node store. SQLite allows one writer, so the pool is
// pinned to a single connection; this also keeps an in-memory database alive for the life
// of the handle. Unique violations are translated to gorm.ErrDuplicatedKey.
func OpenSQLite(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}
