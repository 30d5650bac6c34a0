package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/council-portal/internal/persistence"
)

func preloadMinutes(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Session").
		Preload("Session.AgendaItems", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC").Order("id ASC")
		}).
		Preload("Redactor")
}

// CreateMinutes inserts minutes. A second record for the same session fails
// with persistence.ErrDuplicate.
func (s *Store) CreateMinutes(ctx context.Context, minutes persistence.Minutes) (persistence.Minutes, error) {
	minutes.ID = 0
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&minutes).Error; err != nil {
		return persistence.Minutes{}, mapError(err)
	}
	return s.GetMinutes(ctx, minutes.ID)
}

// UpdateMinutes overwrites the mutable columns of existing minutes.
func (s *Store) UpdateMinutes(ctx context.Context, minutes persistence.Minutes) (persistence.Minutes, error) {
	result := s.db.WithContext(ctx).
		Model(&persistence.Minutes{ID: minutes.ID}).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(&minutes)
	if result.Error != nil {
		return persistence.Minutes{}, mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.Minutes{}, persistence.ErrNotFound
	}
	return s.GetMinutes(ctx, minutes.ID)
}

// GetMinutes loads minutes with their session, agenda and redactor.
func (s *Store) GetMinutes(ctx context.Context, id uint) (persistence.Minutes, error) {
	var minutes persistence.Minutes
	if err := preloadMinutes(s.db.WithContext(ctx)).First(&minutes, id).Error; err != nil {
		return persistence.Minutes{}, mapError(err)
	}
	return minutes, nil
}

// ListMinutes returns minutes, most recently written first.
func (s *Store) ListMinutes(ctx context.Context, filter persistence.MinutesFilter) ([]persistence.Minutes, error) {
	query := preloadMinutes(s.db.WithContext(ctx)).Order("written_at DESC").Order("id DESC")
	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}
	var minutes []persistence.Minutes
	if err := query.Find(&minutes).Error; err != nil {
		return nil, mapError(err)
	}
	return minutes, nil
}

// DeleteMinutes removes minutes.
func (s *Store) DeleteMinutes(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&persistence.Minutes{}, id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// CountMinutes counts all minutes records.
func (s *Store) CountMinutes(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&persistence.Minutes{}).Count(&count).Error; err != nil {
		return 0, mapError(err)
	}
	return count, nil
}
