package model

import (
	"time"

	"gorm.io/gorm"
)

type Run struct {
	ID         string `gorm:"primaryKey"`
	Source     string `gorm:"not null"`
	Dest       string `gorm:"not null"`
	Copied     int
	Merged     int
	Skipped    int
	Errors     int
	Simulated  bool
	StartedAt  time.Time    `gorm:"not null;index"`
	FinishedAt time.Time    `gorm:"not null"`
	Files      []FileRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

type FileRecord struct {
	gorm.Model
	RunID      string  `gorm:"not null;index"`
	RelPath    string  `gorm:"not null"`
	Action     string  `gorm:"not null"`
	Strategy   string
	Outcome    Outcome `gorm:"not null"`
	BackupPath string
	ErrMsg     string
}
