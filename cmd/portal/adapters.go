package main

import (
	"context"
	"time"

	"github.com/example/council-portal/internal/application"
	"github.com/example/council-portal/internal/persistence"
)

type memberRepositoryAdapter struct {
	repo persistence.MemberRepository
}

func newMemberRepositoryAdapter(repo persistence.MemberRepository) *memberRepositoryAdapter {
	return &memberRepositoryAdapter{repo: repo}
}

func (a *memberRepositoryAdapter) CreateMember(ctx context.Context, member application.Member, passwordHash string) (application.Member, error) {
	stored, err := a.repo.CreateMember(ctx, toPersistenceMember(member, passwordHash))
	if err != nil {
		return application.Member{}, err
	}
	return toApplicationMember(stored), nil
}

func (a *memberRepositoryAdapter) UpdateMember(ctx context.Context, member application.Member, passwordHash *string) (application.Member, error) {
	current, err := a.repo.GetMember(ctx, member.ID)
	if err != nil {
		return application.Member{}, err
	}
	hash := current.PasswordHash
	if passwordHash != nil {
		hash = *passwordHash
	}
	stored, err := a.repo.UpdateMember(ctx, toPersistenceMember(member, hash))
	if err != nil {
		return application.Member{}, err
	}
	return toApplicationMember(stored), nil
}

func (a *memberRepositoryAdapter) GetMember(ctx context.Context, id uint) (application.Member, error) {
	stored, err := a.repo.GetMember(ctx, id)
	if err != nil {
		return application.Member{}, err
	}
	return toApplicationMember(stored), nil
}

func (a *memberRepositoryAdapter) GetMemberCredentialsByEmail(ctx context.Context, email string) (application.MemberCredentials, error) {
	stored, err := a.repo.GetMemberByEmail(ctx, email)
	if err != nil {
		return application.MemberCredentials{}, err
	}
	return application.MemberCredentials{Member: toApplicationMember(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *memberRepositoryAdapter) ListMembers(ctx context.Context, activeOnly bool) ([]application.Member, error) {
	stored, err := a.repo.ListMembers(ctx, persistence.MemberFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, err
	}
	members := make([]application.Member, 0, len(stored))
	for _, m := range stored {
		members = append(members, toApplicationMember(m))
	}
	return members, nil
}

func (a *memberRepositoryAdapter) DeleteMember(ctx context.Context, id uint) error {
	return a.repo.DeleteMember(ctx, id)
}

func (a *memberRepositoryAdapter) CountActiveMembers(ctx context.Context) (int64, error) {
	return a.repo.CountActiveMembers(ctx)
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session, replaceAgenda bool) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session), replaceAgenda)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id uint) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) ListSessions(ctx context.Context, status application.SessionStatus) ([]application.Session, error) {
	stored, err := a.repo.ListSessions(ctx, persistence.SessionFilter{Status: string(status)})
	if err != nil {
		return nil, err
	}
	return toApplicationSessions(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteSession(ctx context.Context, id uint) error {
	return a.repo.DeleteSession(ctx, id)
}

func (a *sessionRepositoryAdapter) CountSessionsByStatus(ctx context.Context) (map[application.SessionStatus]int64, error) {
	rows, err := a.repo.CountSessionsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[application.SessionStatus]int64, len(rows))
	for _, row := range rows {
		counts[application.SessionStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func (a *sessionRepositoryAdapter) ListRecentSessions(ctx context.Context, limit int) ([]application.Session, error) {
	stored, err := a.repo.ListRecentSessions(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toApplicationSessions(stored), nil
}

type convocationRepositoryAdapter struct {
	repo persistence.ConvocationRepository
}

func newConvocationRepositoryAdapter(repo persistence.ConvocationRepository) *convocationRepositoryAdapter {
	return &convocationRepositoryAdapter{repo: repo}
}

func (a *convocationRepositoryAdapter) CreateConvocation(ctx context.Context, convocation application.Convocation) (application.Convocation, error) {
	stored, err := a.repo.CreateConvocation(ctx, toPersistenceConvocation(convocation))
	if err != nil {
		return application.Convocation{}, err
	}
	return toApplicationConvocation(stored), nil
}

func (a *convocationRepositoryAdapter) UpdateConvocation(ctx context.Context, convocation application.Convocation) (application.Convocation, error) {
	stored, err := a.repo.UpdateConvocation(ctx, toPersistenceConvocation(convocation))
	if err != nil {
		return application.Convocation{}, err
	}
	return toApplicationConvocation(stored), nil
}

func (a *convocationRepositoryAdapter) GetConvocation(ctx context.Context, id uint) (application.Convocation, error) {
	stored, err := a.repo.GetConvocation(ctx, id)
	if err != nil {
		return application.Convocation{}, err
	}
	return toApplicationConvocation(stored), nil
}

func (a *convocationRepositoryAdapter) FindConvocation(ctx context.Context, memberID, sessionID uint) (application.Convocation, error) {
	stored, err := a.repo.FindConvocation(ctx, memberID, sessionID)
	if err != nil {
		return application.Convocation{}, err
	}
	return toApplicationConvocation(stored), nil
}

func (a *convocationRepositoryAdapter) ListConvocations(ctx context.Context, filter application.ConvocationFilter) ([]application.Convocation, error) {
	stored, err := a.repo.ListConvocations(ctx, persistence.ConvocationFilter{
		SessionID:  filter.SessionID,
		MemberID:   filter.MemberID,
		Status:     string(filter.Status),
		UnreadOnly: filter.UnreadOnly,
	})
	if err != nil {
		return nil, err
	}
	convocations := make([]application.Convocation, 0, len(stored))
	for _, c := range stored {
		convocations = append(convocations, toApplicationConvocation(c))
	}
	return convocations, nil
}

func (a *convocationRepositoryAdapter) DeleteConvocation(ctx context.Context, id uint) error {
	return a.repo.DeleteConvocation(ctx, id)
}

func (a *convocationRepositoryAdapter) MarkRead(ctx context.Context, id uint, readAt time.Time) (bool, error) {
	return a.repo.MarkRead(ctx, id, readAt)
}

type minutesRepositoryAdapter struct {
	repo persistence.MinutesRepository
}

func newMinutesRepositoryAdapter(repo persistence.MinutesRepository) *minutesRepositoryAdapter {
	return &minutesRepositoryAdapter{repo: repo}
}

func (a *minutesRepositoryAdapter) CreateMinutes(ctx context.Context, minutes application.Minutes) (application.Minutes, error) {
	stored, err := a.repo.CreateMinutes(ctx, toPersistenceMinutes(minutes))
	if err != nil {
		return application.Minutes{}, err
	}
	return toApplicationMinutes(stored), nil
}

func (a *minutesRepositoryAdapter) UpdateMinutes(ctx context.Context, minutes application.Minutes) (application.Minutes, error) {
	stored, err := a.repo.UpdateMinutes(ctx, toPersistenceMinutes(minutes))
	if err != nil {
		return application.Minutes{}, err
	}
	return toApplicationMinutes(stored), nil
}

func (a *minutesRepositoryAdapter) GetMinutes(ctx context.Context, id uint) (application.Minutes, error) {
	stored, err := a.repo.GetMinutes(ctx, id)
	if err != nil {
		return application.Minutes{}, err
	}
	return toApplicationMinutes(stored), nil
}

func (a *minutesRepositoryAdapter) ListMinutes(ctx context.Context, sessionID *uint) ([]application.Minutes, error) {
	stored, err := a.repo.ListMinutes(ctx, persistence.MinutesFilter{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	list := make([]application.Minutes, 0, len(stored))
	for _, m := range stored {
		list = append(list, toApplicationMinutes(m))
	}
	return list, nil
}

func (a *minutesRepositoryAdapter) DeleteMinutes(ctx context.Context, id uint) error {
	return a.repo.DeleteMinutes(ctx, id)
}

func (a *minutesRepositoryAdapter) CountMinutes(ctx context.Context) (int64, error) {
	return a.repo.CountMinutes(ctx)
}

func toPersistenceMember(member application.Member, passwordHash string) persistence.Member {
	return persistence.Member{
		ID:           member.ID,
		Name:         member.Name,
		Email:        member.Email,
		Function:     member.Function,
		Role:         string(member.Role),
		PasswordHash: passwordHash,
		PhotoURL:     member.PhotoURL,
		Active:       member.Active,
		CreatedAt:    member.CreatedAt,
		UpdatedAt:    member.UpdatedAt,
	}
}

func toApplicationMember(member persistence.Member) application.Member {
	return application.Member{
		ID:        member.ID,
		Name:      member.Name,
		Email:     member.Email,
		Function:  member.Function,
		Role:      application.Role(member.Role),
		PhotoURL:  member.PhotoURL,
		Active:    member.Active,
		CreatedAt: member.CreatedAt,
		UpdatedAt: member.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	items := make([]persistence.AgendaItem, 0, len(session.Agenda))
	for _, item := range session.Agenda {
		items = append(items, persistence.AgendaItem{
			ID:          item.ID,
			SessionID:   session.ID,
			Title:       item.Title,
			Description: item.Description,
			Position:    item.Position,
		})
	}
	return persistence.Session{
		ID:              session.ID,
		Date:            session.Date,
		Location:        session.Location,
		President:       session.President,
		Title:           session.Title,
		Status:          string(session.Status),
		DurationMinutes: session.DurationMinutes,
		Quorum:          session.Quorum,
		AgendaItems:     items,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func toApplicationSession(session persistence.Session) application.Session {
	agenda := make([]application.AgendaItem, 0, len(session.AgendaItems))
	for _, item := range session.AgendaItems {
		agenda = append(agenda, application.AgendaItem{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Position:    item.Position,
		})
	}
	return application.Session{
		ID:              session.ID,
		Date:            session.Date,
		Location:        session.Location,
		President:       session.President,
		Title:           session.Title,
		Status:          application.SessionStatus(session.Status),
		DurationMinutes: session.DurationMinutes,
		Quorum:          session.Quorum,
		Agenda:          agenda,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func toApplicationSessions(stored []persistence.Session) []application.Session {
	sessions := make([]application.Session, 0, len(stored))
	for _, s := range stored {
		sessions = append(sessions, toApplicationSession(s))
	}
	return sessions
}

// toPersistenceConvocation drops the preloaded session and member; the
// repository writes foreign keys only.
func toPersistenceConvocation(conv application.Convocation) persistence.Convocation {
	return persistence.Convocation{
		ID:        conv.ID,
		SessionID: conv.SessionID,
		MemberID:  conv.MemberID,
		Status:    string(conv.Status),
		Response:  conv.Response,
		SentAt:    conv.SentAt,
		ReadAt:    conv.ReadAt,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func toApplicationConvocation(conv persistence.Convocation) application.Convocation {
	return application.Convocation{
		ID:        conv.ID,
		SessionID: conv.SessionID,
		MemberID:  conv.MemberID,
		Status:    application.ConvocationStatus(conv.Status),
		Response:  conv.Response,
		SentAt:    conv.SentAt,
		ReadAt:    conv.ReadAt,
		Session:   toApplicationSession(conv.Session),
		Member:    toApplicationMember(conv.Member).Summary(),
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func toPersistenceMinutes(minutes application.Minutes) persistence.Minutes {
	return persistence.Minutes{
		ID:         minutes.ID,
		SessionID:  minutes.SessionID,
		Content:    minutes.Content,
		Author:     minutes.Author,
		RedactorID: minutes.RedactorID,
		WrittenAt:  minutes.WrittenAt,
		CreatedAt:  minutes.CreatedAt,
		UpdatedAt:  minutes.UpdatedAt,
	}
}

func toApplicationMinutes(minutes persistence.Minutes) application.Minutes {
	return application.Minutes{
		ID:         minutes.ID,
		SessionID:  minutes.SessionID,
		Content:    minutes.Content,
		Author:     minutes.Author,
		RedactorID: minutes.RedactorID,
		WrittenAt:  minutes.WrittenAt,
		Session:    toApplicationSession(minutes.Session),
		CreatedAt:  minutes.CreatedAt,
		UpdatedAt:  minutes.UpdatedAt,
	}
}
