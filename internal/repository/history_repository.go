// Package repository provides data access interfaces and implementations
package repository

import (
	"context"
	"errors"

	"sweep-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryRepository defines the interface for bridge history data access.
// Entries are keyed by leg id, so terminal status re-delivery updates the
// existing row instead of duplicating it.
type HistoryRepository interface {
	// Upsert inserts or updates the entry for its leg id, then trims the
	// user's history to the configured cap
	Upsert(ctx context.Context, entry *models.BridgeHistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.BridgeHistoryEntry, error)
	// ListByUser newest first, optional status filter, page starts at 1
	ListByUser(ctx context.Context, userID string, status models.BridgeLegStatus, page, pageSize int) ([]*models.BridgeHistoryEntry, int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// historyRepository implements HistoryRepository
type historyRepository struct {
	db    *gorm.DB
	limit int // most recent entries kept per user
}

// NewHistoryRepository creates a new HistoryRepository instance
func NewHistoryRepository(db *gorm.DB, limit int) HistoryRepository {
	if limit <= 0 {
		limit = 500
	}
	return &historyRepository{db: db, limit: limit}
}

// Upsert inserts or updates by leg id and trims the user's history
func (r *historyRepository) Upsert(ctx context.Context, entry *models.BridgeHistoryEntry) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "output_amount", "dest_tx_hash", "error", "completed_at", "updated_at",
		}),
	}).Create(entry).Error
	if err != nil {
		return err
	}

	return r.trim(ctx, entry.UserID)
}

// trim deletes everything older than the newest N entries for the user
func (r *historyRepository) trim(ctx context.Context, userID string) error {
	var cutoffIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.BridgeHistoryEntry{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(r.limit).
		Pluck("id", &cutoffIDs).Error
	if err != nil {
		return err
	}
	if len(cutoffIDs) < r.limit {
		return nil
	}

	return r.db.WithContext(ctx).
		Where("user_id = ? AND id NOT IN ?", userID, cutoffIDs).
		Delete(&models.BridgeHistoryEntry{}).Error
}

// GetByID retrieves one history entry, nil when absent
func (r *historyRepository) GetByID(ctx context.Context, id string) (*models.BridgeHistoryEntry, error) {
	var entry models.BridgeHistoryEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByUser lists a user's history newest first with optional status filter
func (r *historyRepository) ListByUser(ctx context.Context, userID string, status models.BridgeLegStatus, page, pageSize int) ([]*models.BridgeHistoryEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.BridgeHistoryEntry{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*models.BridgeHistoryEntry
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// CountByUser total history entries for a user
func (r *historyRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BridgeHistoryEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
