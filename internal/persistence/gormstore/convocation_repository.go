package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/council-portal/internal/persistence"
)

func preloadConvocation(db *gorm.DB) *gorm.DB {
	return db.Preload("Session").Preload("Member")
}

// CreateConvocation inserts a convocation. The (member, session) unique index
// turns a concurrent duplicate into persistence.ErrDuplicate.
func (s *Store) CreateConvocation(ctx context.Context, convocation persistence.Convocation) (persistence.Convocation, error) {
	convocation.ID = 0
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&convocation).Error; err != nil {
		return persistence.Convocation{}, mapError(err)
	}
	return s.GetConvocation(ctx, convocation.ID)
}

// UpdateConvocation overwrites the mutable columns of a convocation.
func (s *Store) UpdateConvocation(ctx context.Context, convocation persistence.Convocation) (persistence.Convocation, error) {
	result := s.db.WithContext(ctx).
		Model(&persistence.Convocation{ID: convocation.ID}).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(&convocation)
	if result.Error != nil {
		return persistence.Convocation{}, mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.Convocation{}, persistence.ErrNotFound
	}
	return s.GetConvocation(ctx, convocation.ID)
}

// GetConvocation loads a convocation with its session and member.
func (s *Store) GetConvocation(ctx context.Context, id uint) (persistence.Convocation, error) {
	var convocation persistence.Convocation
	if err := preloadConvocation(s.db.WithContext(ctx)).First(&convocation, id).Error; err != nil {
		return persistence.Convocation{}, mapError(err)
	}
	return convocation, nil
}

// FindConvocation loads the convocation of a member for a session.
func (s *Store) FindConvocation(ctx context.Context, memberID, sessionID uint) (persistence.Convocation, error) {
	var convocation persistence.Convocation
	err := preloadConvocation(s.db.WithContext(ctx)).
		Where("member_id = ? AND session_id = ?", memberID, sessionID).
		First(&convocation).Error
	if err != nil {
		return persistence.Convocation{}, mapError(err)
	}
	return convocation, nil
}

// ListConvocations returns convocations ordered by session date, newest first.
func (s *Store) ListConvocations(ctx context.Context, filter persistence.ConvocationFilter) ([]persistence.Convocation, error) {
	query := preloadConvocation(s.db.WithContext(ctx)).
		Joins("JOIN sessions ON sessions.id = convocations.session_id").
		Order("sessions.date DESC").
		Order("convocations.id ASC")
	if filter.SessionID != nil {
		query = query.Where("convocations.session_id = ?", *filter.SessionID)
	}
	if filter.MemberID != nil {
		query = query.Where("convocations.member_id = ?", *filter.MemberID)
	}
	if filter.Status != "" {
		query = query.Where("convocations.status = ?", filter.Status)
	}
	if filter.UnreadOnly {
		query = query.Where("convocations.read_at IS NULL")
	}

	var convocations []persistence.Convocation
	if err := query.Find(&convocations).Error; err != nil {
		return nil, mapError(err)
	}
	return convocations, nil
}

// DeleteConvocation removes a convocation.
func (s *Store) DeleteConvocation(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&persistence.Convocation{}, id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// MarkRead moves a sent convocation to read in a single conditional update so
// that a concurrent confirmation is never overwritten.
func (s *Store) MarkRead(ctx context.Context, id uint, readAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&persistence.Convocation{}).
		Where("id = ? AND status = ?", id, persistence.ConvocationSent).
		Updates(map[string]any{
			"status":     persistence.ConvocationRead,
			"read_at":    gorm.Expr("COALESCE(read_at, ?)", readAt),
			"updated_at": readAt,
		})
	if result.Error != nil {
		return false, mapError(result.Error)
	}
	return result.RowsAffected > 0, nil
}
