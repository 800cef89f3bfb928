// Package repo implements the data persistence layer for the warehouse,
// backed by GORM. This file provides repository helpers for the LoadRun
// model, which records every lake load and backs safe-retry semantics for
// the load endpoint.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

// ErrDuplicate indicates that a load run already exists for the given
// idempotency key.
var ErrDuplicate = errors.New("duplicate")

// CreateLoadRun inserts run and returns ErrDuplicate on unique violation.
func CreateLoadRun(ctx context.Context, db *gorm.DB, run *domain.LoadRun) error {
	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FinishLoadRun stores the final status, counters and error text of run.
func FinishLoadRun(ctx context.Context, db *gorm.DB, run *domain.LoadRun) error {
	res := db.WithContext(ctx).Model(&domain.LoadRun{}).Where("id = ?", run.ID).Updates(map[string]any{
		"status":          run.Status,
		"sources":         run.Sources,
		"skipped_sources": run.SkippedSources,
		"received":        run.Received,
		"invalid":         run.Invalid,
		"duplicates":      run.Duplicates,
		"inserted":        run.Inserted,
		"error":           run.Error,
		"finished_at":     run.FinishedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLoadRun fetches a run by id.
func GetLoadRun(ctx context.Context, db *gorm.DB, id string) (*domain.LoadRun, error) {
	var run domain.LoadRun
	if err := db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// GetLoadRunByKey returns the non-expired run recorded under key, or
// ErrNotFound.
func GetLoadRunByKey(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.LoadRun, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var run domain.LoadRun
	err := db.WithContext(ctx).
		Where("idempotency_key = ? AND expires_at > ?", key, now).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ReleaseExpiredKey clears the idempotency key of an expired run so the key
// can be reused. It is a no-op when no expired run holds the key.
func ReleaseExpiredKey(ctx context.Context, db *gorm.DB, key string, now time.Time) error {
	return db.WithContext(ctx).Model(&domain.LoadRun{}).
		Where("idempotency_key = ? AND expires_at <= ?", key, now).
		Update("idempotency_key", nil).Error
}

// ListLoadRuns returns the most recent runs first.
func ListLoadRuns(ctx context.Context, db *gorm.DB, limit int) ([]domain.LoadRun, error) {
	var out []domain.LoadRun
	q := db.WithContext(ctx).Order("started_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func isUniqueViolation(err error) bool {
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
