package repository

import (
	"errors"
	"fmt"
	"math"

	"mergesync/internal/model"

	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("run not found")

// saveBatchSize keeps each INSERT well under SQLite's bound variable limit.
const saveBatchSize = 500

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save stores a finished report as one run with a record per file.
func (r *HistoryRepository) Save(report model.Report) error {
	run := model.Run{
		ID:         report.RunID,
		Source:     report.Source,
		Dest:       report.Dest,
		Copied:     report.Copied,
		Merged:     report.Merged,
		Skipped:    report.Skipped,
		Errors:     len(report.Errors),
		Simulated:  report.Simulated,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}

	records := make([]model.FileRecord, 0, len(report.Files))
	for _, f := range report.Files {
		rec := model.FileRecord{
			RunID:      report.RunID,
			RelPath:    f.RelPath,
			Action:     string(f.Action.Kind),
			Strategy:   string(f.Action.Strategy),
			Outcome:    f.Outcome,
			BackupPath: f.BackupPath,
		}
		if len(f.Problems) > 0 {
			rec.ErrMsg = f.Problems[0].Message
		}
		records = append(records, rec)
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, saveBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}

	return nil
}

type Stats struct {
	Runs   int64 `json:"runs"`
	Failed int64 `json:"failed"`
	Merged int64 `json:"merged"`
	Copied int64 `json:"copied"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := r.db.Model(&model.Run{}).Count(&stats.Runs).Error; err != nil {
		return stats, err
	}

	if err := r.db.Model(&model.Run{}).
		Where("errors > 0").
		Count(&stats.Failed).Error; err != nil {
		return stats, err
	}

	var totals struct {
		Merged int64
		Copied int64
	}
	if err := r.db.Model(&model.Run{}).
		Select("COALESCE(SUM(merged), 0) AS merged, COALESCE(SUM(copied), 0) AS copied").
		Scan(&totals).Error; err != nil {
		return stats, err
	}
	stats.Merged = totals.Merged
	stats.Copied = totals.Copied

	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.Run, error) {
	var runs []model.Run
	result := r.db.
		Order("started_at desc").
		Limit(limit).
		Find(&runs)

	return runs, result.Error
}

// GetRun loads a run with its file records. id may be a unique prefix.
func (r *HistoryRepository) GetRun(id string) (model.Run, error) {
	var runs []model.Run
	if err := r.db.
		Where("id LIKE ?", id+"%").
		Limit(2).
		Find(&runs).Error; err != nil {
		return model.Run{}, err
	}

	switch len(runs) {
	case 0:
		return model.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
	default:
		return model.Run{}, fmt.Errorf("run id %q is ambiguous", id)
	}

	run := runs[0]
	if err := r.db.
		Where("run_id = ?", run.ID).
		Order("rel_path").
		Find(&run.Files).Error; err != nil {
		return model.Run{}, err
	}

	return run, nil
}

func (r *HistoryRepository) GetFailedFiles(limit int) ([]model.FileRecord, error) {
	var records []model.FileRecord
	result := r.db.
		Where("outcome = ? OR err_msg <> ''", model.OutcomeFailed).
		Order("created_at desc").
		Limit(limit).
		Find(&records)

	return records, result.Error
}

// Prune deletes all but the newest keep runs and returns how many went.
func (r *HistoryRepository) Prune(keep int) (int64, error) {
	var stale []string
	if err := r.db.Model(&model.Run{}).
		Order("started_at desc").
		Offset(keep).
		Limit(math.MaxInt32).
		Pluck("id", &stale).Error; err != nil {
		return 0, err
	}

	if len(stale) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("run_id IN ?", stale).Delete(&model.FileRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", stale).Delete(&model.Run{})
		deleted = res.RowsAffected
		return res.Error
	})

	return deleted, err
}
