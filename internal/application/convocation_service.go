package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Outcome messages reported per member by SendBulk.
const (
	outcomeMemberNotFound = "member not found"
	outcomeEmailFailed    = "email could not be sent"
	outcomeStoreFailed    = "convocation could not be saved"
)

// ConvocationNotifier delivers convocation notices. It reports delivery and
// never fails the caller.
type ConvocationNotifier interface {
	NotifyConvocation(ctx context.Context, notice ConvocationNotice) bool
}

// ConvocationService implements the convocation workflow.
type ConvocationService struct {
	convocations ConvocationRepository
	sessions     SessionRepository
	members      MemberRepository
	notifier     ConvocationNotifier
	now          func() time.Time
	logger       *slog.Logger
}

// NewConvocationService constructs a convocation service.
func NewConvocationService(convocations ConvocationRepository, sessions SessionRepository, members MemberRepository, notifier ConvocationNotifier, now func() time.Time) *ConvocationService {
	return NewConvocationServiceWithLogger(convocations, sessions, members, notifier, now, nil)
}

// NewConvocationServiceWithLogger constructs a convocation service with a specified logger.
func NewConvocationServiceWithLogger(convocations ConvocationRepository, sessions SessionRepository, members MemberRepository, notifier ConvocationNotifier, now func() time.Time, logger *slog.Logger) *ConvocationService {
	if now == nil {
		now = time.Now
	}
	return &ConvocationService{
		convocations: convocations,
		sessions:     sessions,
		members:      members,
		notifier:     notifier,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ConvocationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ConvocationService", operation, attrs...)
}

func (s *ConvocationService) configured() error {
	if s == nil || s.convocations == nil || s.sessions == nil || s.members == nil {
		return fmt.Errorf("convocation service not configured")
	}
	return nil
}

// CreateConvocation summons a member to a session and emails the notice.
// A second convocation for the same pair is rejected by the store with ErrConflict.
func (s *ConvocationService) CreateConvocation(ctx context.Context, params CreateConvocationParams) (result CreateConvocationResult, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateConvocation",
		"principal_id", params.Principal.MemberID,
		"session_id", params.SessionID,
		"member_id", params.MemberID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create convocation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("convocation_id", result.Convocation.ID, "email_sent", result.EmailSent).InfoContext(ctx, "convocation created")
	}()

	if err = authorize(params.Principal, ActionCreate, Resource{Kind: ResourceConvocation}); err != nil {
		return
	}

	vErr := &ValidationError{}
	if params.SessionID == 0 {
		vErr.add("session_id", "session is required")
	}
	if params.MemberID == 0 {
		vErr.add("membre_id", "member is required")
	}
	status := ConvocationSent
	if params.Status != nil {
		status = *params.Status
		if !status.Valid() {
			vErr.add("statut", "status is invalid")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.sessions.GetSession(ctx, params.SessionID); err != nil {
		err = mapRepoError(err)
		return
	}
	if _, err = s.members.GetMember(ctx, params.MemberID); err != nil {
		err = mapRepoError(err)
		return
	}

	now := s.now()
	candidate := Convocation{
		SessionID: params.SessionID,
		MemberID:  params.MemberID,
		Status:    status,
		Response:  strings.TrimSpace(params.Response),
		SentAt:    timePtr(now),
	}
	if status != ConvocationSent {
		candidate.ReadAt = timePtr(now)
	}

	var created Convocation
	created, err = s.convocations.CreateConvocation(ctx, candidate)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result = CreateConvocationResult{Convocation: created, EmailSent: s.notify(ctx, created)}
	return
}

// SendBulk creates or re-sends the convocations of a session, one member at a
// time. A failure for one member is recorded in its outcome and never stops
// the batch.
func (s *ConvocationService) SendBulk(ctx context.Context, params BulkSendParams) (result BulkSendResult, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SendBulk",
		"principal_id", params.Principal.MemberID,
		"session_id", params.SessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to send convocations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("succeeded", result.Succeeded, "failed", result.Failed).InfoContext(ctx, "convocations sent")
	}()

	if err = authorize(params.Principal, ActionSendEmail, Resource{Kind: ResourceConvocation}); err != nil {
		return
	}
	if params.SessionID == 0 {
		err = newValidationError("session_id", "session is required")
		return
	}
	if _, err = s.sessions.GetSession(ctx, params.SessionID); err != nil {
		err = mapRepoError(err)
		return
	}

	memberIDs := params.MemberIDs
	if len(memberIDs) == 0 {
		var active []Member
		active, err = s.members.ListMembers(ctx, true)
		if err != nil {
			err = mapRepoError(err)
			return
		}
		for _, m := range active {
			memberIDs = append(memberIDs, m.ID)
		}
	}

	result = BulkSendResult{SessionID: params.SessionID}
	seen := make(map[uint]bool, len(memberIDs))
	for _, memberID := range memberIDs {
		if memberID == 0 || seen[memberID] {
			continue
		}
		seen[memberID] = true

		outcome := s.sendOne(ctx, logger, params.SessionID, memberID)
		if outcome.EmailSent {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return
}

func (s *ConvocationService) sendOne(ctx context.Context, logger *slog.Logger, sessionID, memberID uint) BulkSendOutcome {
	outcome := BulkSendOutcome{MemberID: memberID}
	memberLogger := logger.With("member_id", memberID)

	if _, err := s.members.GetMember(ctx, memberID); err != nil {
		memberLogger.WarnContext(ctx, "skipping convocation", "error", err)
		outcome.Error = outcomeMemberNotFound
		return outcome
	}

	conv, err := s.upsertSent(ctx, sessionID, memberID)
	if err != nil {
		memberLogger.ErrorContext(ctx, "failed to record convocation", "error", err, "error_kind", ErrorKind(err))
		outcome.Error = outcomeStoreFailed
		return outcome
	}
	outcome.ConvocationID = conv.ID

	outcome.EmailSent = s.notify(ctx, conv)
	if !outcome.EmailSent {
		outcome.Error = outcomeEmailFailed
	}
	return outcome
}

// upsertSent re-sends the existing convocation of the pair or creates one.
// When a concurrent request wins the insert, the row it created is re-sent.
func (s *ConvocationService) upsertSent(ctx context.Context, sessionID, memberID uint) (Convocation, error) {
	existing, err := s.convocations.FindConvocation(ctx, memberID, sessionID)
	if err == nil {
		return s.resend(ctx, existing)
	}
	if !errors.Is(mapRepoError(err), ErrNotFound) {
		return Convocation{}, mapRepoError(err)
	}

	now := s.now()
	created, err := s.convocations.CreateConvocation(ctx, Convocation{
		SessionID: sessionID,
		MemberID:  memberID,
		Status:    ConvocationSent,
		SentAt:    timePtr(now),
	})
	if err == nil {
		return created, nil
	}
	if !errors.Is(mapRepoError(err), ErrConflict) {
		return Convocation{}, mapRepoError(err)
	}

	existing, err = s.convocations.FindConvocation(ctx, memberID, sessionID)
	if err != nil {
		return Convocation{}, mapRepoError(err)
	}
	return s.resend(ctx, existing)
}

// resend returns a convocation to sent, clearing its read timestamp.
func (s *ConvocationService) resend(ctx context.Context, conv Convocation) (Convocation, error) {
	conv.Status = ConvocationSent
	conv.SentAt = timePtr(s.now())
	conv.ReadAt = nil
	updated, err := s.convocations.UpdateConvocation(ctx, conv)
	if err != nil {
		return Convocation{}, mapRepoError(err)
	}
	return updated, nil
}

// SendEmail re-sends a single convocation regardless of its current status.
func (s *ConvocationService) SendEmail(ctx context.Context, principal Principal, convocationID uint) (result CreateConvocationResult, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SendEmail",
		"principal_id", principal.MemberID,
		"convocation_id", convocationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resend convocation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("email_sent", result.EmailSent).InfoContext(ctx, "convocation resent")
	}()

	if err = authorize(principal, ActionSendEmail, Resource{Kind: ResourceConvocation}); err != nil {
		return
	}

	var existing Convocation
	existing, err = s.convocations.GetConvocation(ctx, convocationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var updated Convocation
	updated, err = s.resend(ctx, existing)
	if err != nil {
		return
	}
	result = CreateConvocationResult{Convocation: updated, EmailSent: s.notify(ctx, updated)}
	return
}

// MarkRead records that the owner opened the convocation. It only moves a sent
// convocation forward and is a no-op for read or confirmed ones.
func (s *ConvocationService) MarkRead(ctx context.Context, principal Principal, convocationID uint) (conv Convocation, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "MarkRead",
		"principal_id", principal.MemberID,
		"convocation_id", convocationID,
	)
	changed := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark convocation read", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("changed", changed, "status", conv.Status).InfoContext(ctx, "convocation marked read")
	}()

	var existing Convocation
	existing, err = s.convocations.GetConvocation(ctx, convocationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if err = authorize(principal, ActionMarkRead, Resource{Kind: ResourceConvocation, OwnerID: existing.MemberID}); err != nil {
		return
	}
	if existing.Status != ConvocationSent {
		conv = existing
		return
	}

	changed, err = s.convocations.MarkRead(ctx, convocationID, s.now())
	if err != nil {
		err = mapRepoError(err)
		return
	}
	conv, err = s.convocations.GetConvocation(ctx, convocationID)
	err = mapRepoError(err)
	return
}

// UpdateConvocation applies the optional fields of params.Update. Owners may
// change status and response only, and only move the status forward.
func (s *ConvocationService) UpdateConvocation(ctx context.Context, params UpdateConvocationParams) (conv Convocation, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateConvocation",
		"principal_id", params.Principal.MemberID,
		"convocation_id", params.ConvocationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update convocation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", conv.Status).InfoContext(ctx, "convocation updated")
	}()

	var existing Convocation
	existing, err = s.convocations.GetConvocation(ctx, params.ConvocationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	update := params.Update
	if err = authorize(params.Principal, ActionUpdate, Resource{
		Kind:    ResourceConvocation,
		OwnerID: existing.MemberID,
		Fields:  update.fields(),
	}); err != nil {
		return
	}

	updated := existing
	if update.Status != nil {
		next := *update.Status
		switch {
		case !next.Valid():
			err = newValidationError("statut", "status is invalid")
			return
		case !params.Principal.IsAdmin() && next.rank() < existing.Status.rank():
			err = newValidationError("statut", "status cannot move backwards")
			return
		}
		updated.Status = next
		if next == ConvocationSent {
			updated.ReadAt = nil
		} else if updated.ReadAt == nil {
			updated.ReadAt = timePtr(s.now())
		}
	}
	if update.Response != nil {
		updated.Response = strings.TrimSpace(*update.Response)
	}
	if update.SessionID != nil && *update.SessionID != existing.SessionID {
		if _, err = s.sessions.GetSession(ctx, *update.SessionID); err != nil {
			err = mapRepoError(err)
			return
		}
		updated.SessionID = *update.SessionID
	}
	if update.MemberID != nil && *update.MemberID != existing.MemberID {
		if _, err = s.members.GetMember(ctx, *update.MemberID); err != nil {
			err = mapRepoError(err)
			return
		}
		updated.MemberID = *update.MemberID
	}

	conv, err = s.convocations.UpdateConvocation(ctx, updated)
	err = mapRepoError(err)
	return
}

// DeleteConvocation removes a convocation for administrators.
func (s *ConvocationService) DeleteConvocation(ctx context.Context, principal Principal, convocationID uint) error {
	if err := s.configured(); err != nil {
		return err
	}
	if err := authorize(principal, ActionDelete, Resource{Kind: ResourceConvocation}); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteConvocation",
		"principal_id", principal.MemberID,
		"convocation_id", convocationID,
	)
	if err := s.convocations.DeleteConvocation(ctx, convocationID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete convocation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "convocation deleted")
	return nil
}

// GetConvocation returns one convocation with its session and member.
func (s *ConvocationService) GetConvocation(ctx context.Context, principal Principal, convocationID uint) (Convocation, error) {
	if err := s.configured(); err != nil {
		return Convocation{}, err
	}
	if err := authorize(principal, ActionView, Resource{Kind: ResourceConvocation}); err != nil {
		return Convocation{}, err
	}
	conv, err := s.convocations.GetConvocation(ctx, convocationID)
	if err != nil {
		return Convocation{}, mapRepoError(err)
	}
	return conv, nil
}

// ListConvocations returns convocations with their session and member projection.
func (s *ConvocationService) ListConvocations(ctx context.Context, principal Principal, filter ConvocationFilter) (convocations []Convocation, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListConvocations", "principal_id", principal.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list convocations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(convocations)).InfoContext(ctx, "convocations listed")
	}()

	if err = authorize(principal, ActionList, Resource{Kind: ResourceConvocation}); err != nil {
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		err = newValidationError("statut", "status is invalid")
		return
	}

	convocations, err = s.convocations.ListConvocations(ctx, filter)
	err = mapRepoError(err)
	return
}

func (s *ConvocationService) notify(ctx context.Context, conv Convocation) bool {
	if s.notifier == nil {
		return false
	}
	return s.notifier.NotifyConvocation(ctx, ConvocationNotice{
		ConvocationID: conv.ID,
		Member:        conv.Member,
		Session:       conv.Session,
	})
}

func (u ConvocationUpdate) fields() []string {
	var fields []string
	if u.Status != nil {
		fields = append(fields, "statut")
	}
	if u.Response != nil {
		fields = append(fields, "reponse")
	}
	if u.SessionID != nil {
		fields = append(fields, "session_id")
	}
	if u.MemberID != nil {
		fields = append(fields, "membre_id")
	}
	return fields
}
