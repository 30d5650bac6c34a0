package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/council-portal/internal/persistence"
)

// MemberRepository captures the member persistence operations used by the services.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member, passwordHash string) (Member, error)
	// UpdateMember saves member; a nil passwordHash keeps the stored one.
	UpdateMember(ctx context.Context, member Member, passwordHash *string) (Member, error)
	GetMember(ctx context.Context, id uint) (Member, error)
	GetMemberCredentialsByEmail(ctx context.Context, email string) (MemberCredentials, error)
	ListMembers(ctx context.Context, activeOnly bool) ([]Member, error)
	DeleteMember(ctx context.Context, id uint) error
	CountActiveMembers(ctx context.Context) (int64, error)
}

// SessionRepository captures the session persistence operations used by the services.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	UpdateSession(ctx context.Context, session Session, replaceAgenda bool) (Session, error)
	GetSession(ctx context.Context, id uint) (Session, error)
	ListSessions(ctx context.Context, status SessionStatus) ([]Session, error)
	DeleteSession(ctx context.Context, id uint) error
	CountSessionsByStatus(ctx context.Context) (map[SessionStatus]int64, error)
	ListRecentSessions(ctx context.Context, limit int) ([]Session, error)
}

// ConvocationRepository captures the convocation persistence operations used by the services.
type ConvocationRepository interface {
	CreateConvocation(ctx context.Context, convocation Convocation) (Convocation, error)
	UpdateConvocation(ctx context.Context, convocation Convocation) (Convocation, error)
	GetConvocation(ctx context.Context, id uint) (Convocation, error)
	FindConvocation(ctx context.Context, memberID, sessionID uint) (Convocation, error)
	ListConvocations(ctx context.Context, filter ConvocationFilter) ([]Convocation, error)
	DeleteConvocation(ctx context.Context, id uint) error
	MarkRead(ctx context.Context, id uint, readAt time.Time) (bool, error)
}

// MinutesRepository captures the minutes persistence operations used by the services.
type MinutesRepository interface {
	CreateMinutes(ctx context.Context, minutes Minutes) (Minutes, error)
	UpdateMinutes(ctx context.Context, minutes Minutes) (Minutes, error)
	GetMinutes(ctx context.Context, id uint) (Minutes, error)
	ListMinutes(ctx context.Context, sessionID *uint) ([]Minutes, error)
	DeleteMinutes(ctx context.Context, id uint) error
	CountMinutes(ctx context.Context) (int64, error)
}

// mapRepoError converts persistence sentinels into application errors. A
// foreign key failure means a referenced record is gone.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError("record", "violates a data constraint")
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func timePtr(t time.Time) *time.Time {
	return &t
}
