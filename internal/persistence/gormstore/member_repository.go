package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/council-portal/internal/persistence"
)

// CreateMember inserts a member and returns it with its generated id.
func (s *Store) CreateMember(ctx context.Context, member persistence.Member) (persistence.Member, error) {
	member.ID = 0
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		return persistence.Member{}, mapError(err)
	}
	return member, nil
}

// UpdateMember overwrites every mutable column of an existing member.
func (s *Store) UpdateMember(ctx context.Context, member persistence.Member) (persistence.Member, error) {
	result := s.db.WithContext(ctx).
		Model(&persistence.Member{ID: member.ID}).
		Select("*").
		Omit("id", "created_at").
		Updates(&member)
	if result.Error != nil {
		return persistence.Member{}, mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.Member{}, persistence.ErrNotFound
	}
	return s.GetMember(ctx, member.ID)
}

// GetMember loads a member by id.
func (s *Store) GetMember(ctx context.Context, id uint) (persistence.Member, error) {
	var member persistence.Member
	if err := s.db.WithContext(ctx).First(&member, id).Error; err != nil {
		return persistence.Member{}, mapError(err)
	}
	return member, nil
}

// GetMemberByEmail loads a member by its normalized email address.
func (s *Store) GetMemberByEmail(ctx context.Context, email string) (persistence.Member, error) {
	var member persistence.Member
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&member).Error; err != nil {
		return persistence.Member{}, mapError(err)
	}
	return member, nil
}

// ListMembers returns members ordered by name.
func (s *Store) ListMembers(ctx context.Context, filter persistence.MemberFilter) ([]persistence.Member, error) {
	query := s.db.WithContext(ctx).Order("name ASC").Order("id ASC")
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	var members []persistence.Member
	if err := query.Find(&members).Error; err != nil {
		return nil, mapError(err)
	}
	return members, nil
}

// DeleteMember removes a member, their convocations and their redactor links
// in one transaction.
func (s *Store) DeleteMember(ctx context.Context, id uint) error {
	return s.withTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ?", id).Delete(&persistence.Convocation{}).Error; err != nil {
			return mapError(err)
		}
		if err := tx.Model(&persistence.Minutes{}).
			Where("redactor_id = ?", id).
			Update("redactor_id", nil).Error; err != nil {
			return mapError(err)
		}
		result := tx.Delete(&persistence.Member{}, id)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// CountActiveMembers counts members flagged active.
func (s *Store) CountActiveMembers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&persistence.Member{}).Where("active = ?", true).Count(&count).Error; err != nil {
		return 0, mapError(err)
	}
	return count, nil
}
