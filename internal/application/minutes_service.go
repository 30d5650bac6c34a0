package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MinutesRenderer turns minutes into a downloadable document.
type MinutesRenderer interface {
	RenderMinutes(minutes Minutes) (MinutesExport, error)
}

// MinutesService manages the written record of sessions.
type MinutesService struct {
	minutes  MinutesRepository
	sessions SessionRepository
	members  MemberRepository
	renderer MinutesRenderer
	now      func() time.Time
	logger   *slog.Logger
}

// NewMinutesService constructs a minutes service.
func NewMinutesService(minutes MinutesRepository, sessions SessionRepository, members MemberRepository, renderer MinutesRenderer, now func() time.Time) *MinutesService {
	return NewMinutesServiceWithLogger(minutes, sessions, members, renderer, now, nil)
}

// NewMinutesServiceWithLogger constructs a minutes service with a specified logger.
func NewMinutesServiceWithLogger(minutes MinutesRepository, sessions SessionRepository, members MemberRepository, renderer MinutesRenderer, now func() time.Time, logger *slog.Logger) *MinutesService {
	if now == nil {
		now = time.Now
	}
	return &MinutesService{
		minutes:  minutes,
		sessions: sessions,
		members:  members,
		renderer: renderer,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *MinutesService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MinutesService", operation, attrs...)
}

func (s *MinutesService) configured() error {
	if s == nil || s.minutes == nil || s.sessions == nil || s.members == nil {
		return fmt.Errorf("minutes service not configured")
	}
	return nil
}

// CreateMinutes records the minutes of a session. Each session has at most one
// record; a second attempt fails with ErrConflict. The author defaults to the
// redacting administrator's name.
func (s *MinutesService) CreateMinutes(ctx context.Context, params CreateMinutesParams) (minutes Minutes, err error) {
	if err = s.configured(); err != nil {
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateMinutes",
		"principal_id", params.Principal.MemberID,
		"session_id", input.SessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create minutes", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("minutes_id", minutes.ID).InfoContext(ctx, "minutes created")
	}()

	if err = authorize(params.Principal, ActionCreate, Resource{Kind: ResourceMinutes}); err != nil {
		return
	}

	vErr := &ValidationError{}
	if input.SessionID == 0 {
		vErr.add("session_id", "session is required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		vErr.add("contenu", "content is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.sessions.GetSession(ctx, input.SessionID); err != nil {
		err = mapRepoError(err)
		return
	}

	author := strings.TrimSpace(input.Author)
	if author == "" {
		var redactor Member
		redactor, err = s.members.GetMember(ctx, params.Principal.MemberID)
		if err != nil {
			err = mapRepoError(err)
			return
		}
		author = redactor.Name
	}

	writtenAt := s.now()
	if input.WrittenAt != nil && !input.WrittenAt.IsZero() {
		writtenAt = *input.WrittenAt
	}
	redactorID := params.Principal.MemberID

	minutes, err = s.minutes.CreateMinutes(ctx, Minutes{
		SessionID:  input.SessionID,
		Content:    content,
		Author:     author,
		RedactorID: &redactorID,
		WrittenAt:  writtenAt,
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}
	sortAgenda(minutes.Session.Agenda)
	return
}

// UpdateMinutes applies the optional fields of params.Update for administrators.
func (s *MinutesService) UpdateMinutes(ctx context.Context, params UpdateMinutesParams) (minutes Minutes, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateMinutes",
		"principal_id", params.Principal.MemberID,
		"minutes_id", params.MinutesID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update minutes", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "minutes updated")
	}()

	if err = authorize(params.Principal, ActionUpdate, Resource{Kind: ResourceMinutes}); err != nil {
		return
	}

	var existing Minutes
	existing, err = s.minutes.GetMinutes(ctx, params.MinutesID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	update := params.Update
	updated := existing
	if update.Content != nil {
		updated.Content = strings.TrimSpace(*update.Content)
		if updated.Content == "" {
			err = newValidationError("contenu", "content is required")
			return
		}
	}
	if update.Author != nil {
		if author := strings.TrimSpace(*update.Author); author != "" {
			updated.Author = author
		}
	}
	if update.WrittenAt != nil && !update.WrittenAt.IsZero() {
		updated.WrittenAt = *update.WrittenAt
	}

	minutes, err = s.minutes.UpdateMinutes(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	sortAgenda(minutes.Session.Agenda)
	return
}

// GetMinutes returns minutes with their session and agenda.
func (s *MinutesService) GetMinutes(ctx context.Context, principal Principal, minutesID uint) (Minutes, error) {
	if err := s.configured(); err != nil {
		return Minutes{}, err
	}
	if err := authorize(principal, ActionView, Resource{Kind: ResourceMinutes}); err != nil {
		return Minutes{}, err
	}
	minutes, err := s.minutes.GetMinutes(ctx, minutesID)
	if err != nil {
		return Minutes{}, mapRepoError(err)
	}
	sortAgenda(minutes.Session.Agenda)
	return minutes, nil
}

// ListMinutes returns minutes, most recently written first.
func (s *MinutesService) ListMinutes(ctx context.Context, principal Principal, sessionID *uint) (list []Minutes, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListMinutes", "principal_id", principal.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list minutes", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(list)).InfoContext(ctx, "minutes listed")
	}()

	if err = authorize(principal, ActionList, Resource{Kind: ResourceMinutes}); err != nil {
		return
	}
	list, err = s.minutes.ListMinutes(ctx, sessionID)
	err = mapRepoError(err)
	return
}

// DeleteMinutes removes minutes for administrators.
func (s *MinutesService) DeleteMinutes(ctx context.Context, principal Principal, minutesID uint) error {
	if err := s.configured(); err != nil {
		return err
	}
	if err := authorize(principal, ActionDelete, Resource{Kind: ResourceMinutes}); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteMinutes",
		"principal_id", principal.MemberID,
		"minutes_id", minutesID,
	)
	if err := s.minutes.DeleteMinutes(ctx, minutesID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete minutes", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "minutes deleted")
	return nil
}

// ExportMinutes renders minutes as a standalone document.
func (s *MinutesService) ExportMinutes(ctx context.Context, principal Principal, minutesID uint) (export MinutesExport, err error) {
	if err = s.configured(); err != nil {
		return
	}
	if s.renderer == nil {
		err = fmt.Errorf("minutes renderer not configured")
		return
	}

	logger := s.loggerWith(ctx, "ExportMinutes",
		"principal_id", principal.MemberID,
		"minutes_id", minutesID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to export minutes", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("filename", export.Filename, "bytes", len(export.Body)).InfoContext(ctx, "minutes exported")
	}()

	if err = authorize(principal, ActionExport, Resource{Kind: ResourceMinutes}); err != nil {
		return
	}

	var minutes Minutes
	minutes, err = s.minutes.GetMinutes(ctx, minutesID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	sortAgenda(minutes.Session.Agenda)

	export, err = s.renderer.RenderMinutes(minutes)
	return
}
