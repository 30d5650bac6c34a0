package persistence

import (
	"context"
	"time"
)

// MemberFilter narrows member listings.
type MemberFilter struct {
	ActiveOnly bool
}

// MemberRepository exposes CRUD operations for members.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) (Member, error)
	UpdateMember(ctx context.Context, member Member) (Member, error)
	GetMember(ctx context.Context, id uint) (Member, error)
	GetMemberByEmail(ctx context.Context, email string) (Member, error)
	ListMembers(ctx context.Context, filter MemberFilter) ([]Member, error)
	// DeleteMember removes the member with its convocations and detaches
	// any minutes they redacted.
	DeleteMember(ctx context.Context, id uint) error
	CountActiveMembers(ctx context.Context) (int64, error)
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	Status string
}

// SessionRepository stores council sessions with their agenda.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	// UpdateSession saves the scalar fields and, when replaceAgenda is set,
	// swaps the agenda for session.AgendaItems.
	UpdateSession(ctx context.Context, session Session, replaceAgenda bool) (Session, error)
	GetSession(ctx context.Context, id uint) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	DeleteSession(ctx context.Context, id uint) error
	CountSessionsByStatus(ctx context.Context) ([]SessionStatusCount, error)
	ListRecentSessions(ctx context.Context, limit int) ([]Session, error)
}

// ConvocationFilter narrows convocation listings.
type ConvocationFilter struct {
	SessionID *uint
	MemberID  *uint
	Status    string
	// UnreadOnly keeps rows whose read timestamp is unset.
	UnreadOnly bool
}

// ConvocationRepository stores convocations. Reads preload the session and member.
type ConvocationRepository interface {
	CreateConvocation(ctx context.Context, convocation Convocation) (Convocation, error)
	UpdateConvocation(ctx context.Context, convocation Convocation) (Convocation, error)
	GetConvocation(ctx context.Context, id uint) (Convocation, error)
	FindConvocation(ctx context.Context, memberID, sessionID uint) (Convocation, error)
	ListConvocations(ctx context.Context, filter ConvocationFilter) ([]Convocation, error)
	DeleteConvocation(ctx context.Context, id uint) error
	// MarkRead moves an unread convocation to read and reports whether a row changed.
	MarkRead(ctx context.Context, id uint, readAt time.Time) (bool, error)
}

// MinutesFilter narrows minutes listings.
type MinutesFilter struct {
	SessionID *uint
}

// MinutesRepository stores session minutes.
type MinutesRepository interface {
	CreateMinutes(ctx context.Context, minutes Minutes) (Minutes, error)
	UpdateMinutes(ctx context.Context, minutes Minutes) (Minutes, error)
	GetMinutes(ctx context.Context, id uint) (Minutes, error)
	ListMinutes(ctx context.Context, filter MinutesFilter) ([]Minutes, error)
	DeleteMinutes(ctx context.Context, id uint) error
	CountMinutes(ctx context.Context) (int64, error)
}
