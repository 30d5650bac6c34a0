package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/council-portal/internal/persistence"
)

func preloadAgenda(db *gorm.DB) *gorm.DB {
	return db.Preload("AgendaItems", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC").Order("id ASC")
	})
}

// CreateSession inserts a session together with its agenda items.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.ID = 0
	for i := range session.AgendaItems {
		session.AgendaItems[i].ID = 0
		session.AgendaItems[i].SessionID = 0
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return persistence.Session{}, mapError(err)
	}
	return s.GetSession(ctx, session.ID)
}

// UpdateSession saves the session columns and optionally replaces its agenda.
func (s *Store) UpdateSession(ctx context.Context, session persistence.Session, replaceAgenda bool) (persistence.Session, error) {
	err := s.withTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&persistence.Session{ID: session.ID}).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(&session)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return persistence.ErrNotFound
		}
		if !replaceAgenda {
			return nil
		}

		if err := tx.Where("session_id = ?", session.ID).Delete(&persistence.AgendaItem{}).Error; err != nil {
			return mapError(err)
		}
		if len(session.AgendaItems) == 0 {
			return nil
		}
		items := make([]persistence.AgendaItem, len(session.AgendaItems))
		for i, item := range session.AgendaItems {
			item.ID = 0
			item.SessionID = session.ID
			items[i] = item
		}
		return mapError(tx.Create(&items).Error)
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return s.GetSession(ctx, session.ID)
}

// GetSession loads a session with its agenda sorted by position.
func (s *Store) GetSession(ctx context.Context, id uint) (persistence.Session, error) {
	var session persistence.Session
	if err := preloadAgenda(s.db.WithContext(ctx)).First(&session, id).Error; err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// ListSessions returns sessions, most recent date first.
func (s *Store) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	query := preloadAgenda(s.db.WithContext(ctx)).Order("date DESC").Order("id DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var sessions []persistence.Session
	if err := query.Find(&sessions).Error; err != nil {
		return nil, mapError(err)
	}
	return sessions, nil
}

// DeleteSession removes a session with its agenda, convocations and minutes.
func (s *Store) DeleteSession(ctx context.Context, id uint) error {
	return s.withTransaction(ctx, func(tx *gorm.DB) error {
		for _, model := range []any{&persistence.AgendaItem{}, &persistence.Convocation{}, &persistence.Minutes{}} {
			if err := tx.Where("session_id = ?", id).Delete(model).Error; err != nil {
				return mapError(err)
			}
		}
		result := tx.Delete(&persistence.Session{}, id)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// CountSessionsByStatus groups sessions by status.
func (s *Store) CountSessionsByStatus(ctx context.Context) ([]persistence.SessionStatusCount, error) {
	var counts []persistence.SessionStatusCount
	err := s.db.WithContext(ctx).
		Model(&persistence.Session{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, mapError(err)
	}
	return counts, nil
}

// ListRecentSessions returns the most recently created sessions.
func (s *Store) ListRecentSessions(ctx context.Context, limit int) ([]persistence.Session, error) {
	if limit <= 0 {
		return nil, nil
	}
	var sessions []persistence.Session
	err := preloadAgenda(s.db.WithContext(ctx)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, mapError(err)
	}
	return sessions, nil
}
