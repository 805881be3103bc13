package db

import (
	"fmt"
	"os"
	"path/filepath"

	"mergesync/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}

	DB = conn
	return nil
}

// Open opens (creating if needed) the history database and migrates it.
func Open(dbPath string) (*gorm.DB, error) {
	if dbPath != ":memory:" && dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	conn, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := conn.AutoMigrate(&model.Run{}, &model.FileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return conn, nil
}
