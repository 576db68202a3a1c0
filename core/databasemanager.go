package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// DatabaseManager owns the single SQLite handle behind the register. SQLite
// has one writer, and the pass-number count must not interleave with the
// matching insert, so every logical operation runs under mu.
type DatabaseManager struct {
	db *gorm.DB
	mu sync.Mutex

	LogLevel LogLevel
}

// Open creates the parent directory if needed and opens the database file
// with the pragmas the register relies on (WAL journalling, foreign keys).
func Open(path string, level LogLevel) (*DatabaseManager, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	gormLogLevel := logger.Silent
	switch level {
	case LogLevelError:
		gormLogLevel = logger.Error
	case LogLevelWarn:
		gormLogLevel = logger.Warn
	case LogLevelInfo:
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
		"PRAGMA foreign_keys=ON;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &DatabaseManager{db: db, LogLevel: level}, nil
}

// Exec runs fn against the handle as one serialized logical operation.
func (dm *DatabaseManager) Exec(fn func(db *gorm.DB) error) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	return fn(dm.db)
}

// Tx runs fn inside a transaction, still under the operation lock, so a
// read-then-write sequence commits or rolls back as one unit.
func (dm *DatabaseManager) Tx(fn func(tx *gorm.DB) error) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	return dm.db.Transaction(fn)
}

// Close closes the underlying pool.
func (dm *DatabaseManager) Close() error {
	sqlDB, err := dm.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
