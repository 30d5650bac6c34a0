package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// SessionService manages council sessions and their agenda.
type SessionService struct {
	sessions SessionRepository
	logger   *slog.Logger
}

// NewSessionService constructs a session service.
func NewSessionService(sessions SessionRepository) *SessionService {
	return NewSessionServiceWithLogger(sessions, nil)
}

// NewSessionServiceWithLogger constructs a session service with a specified logger.
func NewSessionServiceWithLogger(sessions SessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{sessions: sessions, logger: defaultLogger(logger)}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates input and persists a new session for administrators.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (session Session, err error) {
	if s == nil || s.sessions == nil {
		err = fmt.Errorf("session service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession", "principal_id", params.Principal.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID, "agenda_items", len(session.Agenda)).InfoContext(ctx, "session created")
	}()

	if err = authorize(params.Principal, ActionCreate, Resource{Kind: ResourceSession}); err != nil {
		return
	}

	input := params.Input
	status := input.Status
	if status == "" {
		status = SessionPlanned
	}
	candidate := Session{
		Date:            input.Date,
		Location:        strings.TrimSpace(input.Location),
		President:       strings.TrimSpace(input.President),
		Title:           normalizeOptionalString(input.Title),
		Status:          status,
		DurationMinutes: input.DurationMinutes,
		Quorum:          input.Quorum,
		Agenda:          buildAgenda(input.Agenda),
	}

	if vErr := validateSession(candidate); vErr.HasErrors() {
		err = vErr
		return
	}

	session, err = s.sessions.CreateSession(ctx, candidate)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	sortAgenda(session.Agenda)
	return
}

// UpdateSession applies the optional fields of params.Update for administrators.
func (s *SessionService) UpdateSession(ctx context.Context, params UpdateSessionParams) (session Session, err error) {
	if s == nil || s.sessions == nil {
		err = fmt.Errorf("session service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSession",
		"principal_id", params.Principal.MemberID,
		"session_id", params.SessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session updated")
	}()

	if err = authorize(params.Principal, ActionUpdate, Resource{Kind: ResourceSession}); err != nil {
		return
	}

	var existing Session
	existing, err = s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	update := params.Update
	updated := existing
	if update.Date != nil {
		updated.Date = *update.Date
	}
	if update.Location != nil {
		updated.Location = strings.TrimSpace(*update.Location)
	}
	if update.President != nil {
		updated.President = strings.TrimSpace(*update.President)
	}
	if update.Title != nil {
		updated.Title = normalizeOptionalString(update.Title)
	}
	if update.Status != nil {
		updated.Status = *update.Status
	}
	if update.DurationMinutes != nil {
		updated.DurationMinutes = *update.DurationMinutes
	}
	if update.Quorum != nil {
		updated.Quorum = *update.Quorum
	}
	replaceAgenda := update.Agenda != nil
	if replaceAgenda {
		updated.Agenda = buildAgenda(*update.Agenda)
	}

	if vErr := validateSession(updated); vErr.HasErrors() {
		err = vErr
		return
	}

	session, err = s.sessions.UpdateSession(ctx, updated, replaceAgenda)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	sortAgenda(session.Agenda)
	return
}

// GetSession returns a session with its agenda ordered by position.
func (s *SessionService) GetSession(ctx context.Context, principal Principal, sessionID uint) (Session, error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session service not configured")
	}
	if err := authorize(principal, ActionView, Resource{Kind: ResourceSession}); err != nil {
		return Session{}, err
	}
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}
	sortAgenda(session.Agenda)
	return session, nil
}

// ListSessions returns sessions, newest date first, optionally filtered by status.
func (s *SessionService) ListSessions(ctx context.Context, principal Principal, status SessionStatus) (sessions []Session, err error) {
	if s == nil || s.sessions == nil {
		err = fmt.Errorf("session service not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListSessions", "principal_id", principal.MemberID, "status", status)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list sessions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(sessions)).InfoContext(ctx, "sessions listed")
	}()

	if err = authorize(principal, ActionList, Resource{Kind: ResourceSession}); err != nil {
		return
	}
	if status != "" && !status.Valid() {
		err = newValidationError("statut", "status is invalid")
		return
	}

	sessions, err = s.sessions.ListSessions(ctx, status)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	for i := range sessions {
		sortAgenda(sessions[i].Agenda)
	}
	return
}

// DeleteSession removes a session together with its agenda, convocations and minutes.
func (s *SessionService) DeleteSession(ctx context.Context, principal Principal, sessionID uint) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("session service not configured")
	}
	if err := authorize(principal, ActionDelete, Resource{Kind: ResourceSession}); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteSession",
		"principal_id", principal.MemberID,
		"session_id", sessionID,
	)
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "session deleted")
	return nil
}

func buildAgenda(inputs []AgendaItemInput) []AgendaItem {
	if len(inputs) == 0 {
		return nil
	}
	items := make([]AgendaItem, 0, len(inputs))
	for i, in := range inputs {
		position := i + 1
		if in.Position != nil {
			position = *in.Position
		}
		items = append(items, AgendaItem{
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			Position:    position,
		})
	}
	return items
}

func sortAgenda(items []AgendaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Position == items[j].Position {
			return items[i].ID < items[j].ID
		}
		return items[i].Position < items[j].Position
	})
}

func validateSession(session Session) *ValidationError {
	vErr := &ValidationError{}
	if session.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if session.Location == "" {
		vErr.add("lieu", "location is required")
	}
	if session.President == "" {
		vErr.add("president", "president is required")
	}
	if !session.Status.Valid() {
		vErr.add("statut", "status is invalid")
	}
	if session.DurationMinutes < 0 {
		vErr.add("duree", "must not be negative")
	}
	if session.Quorum < 0 {
		vErr.add("quorum", "must not be negative")
	}
	for i, item := range session.Agenda {
		if item.Title == "" {
			vErr.add(fmt.Sprintf("ordre_du_jour[%d].titre", i), "title is required")
		}
		if item.Position < 0 {
			vErr.add(fmt.Sprintf("ordre_du_jour[%d].ordre", i), "must not be negative")
		}
	}
	return vErr
}
