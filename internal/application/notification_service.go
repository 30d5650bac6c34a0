package application

import (
	"context"
	"fmt"
	"log/slog"
)

// NotificationTypeConvocation tags notifications derived from unread convocations.
const NotificationTypeConvocation = "convocation"

const notificationDateLayout = "02/01/2006 à 15h04"

// NotificationService derives the caller's pending notifications from
// convocation state. Nothing is stored; every call recomputes the list.
type NotificationService struct {
	convocations ConvocationRepository
	logger       *slog.Logger
}

// NewNotificationService constructs a notification service.
func NewNotificationService(convocations ConvocationRepository) *NotificationService {
	return NewNotificationServiceWithLogger(convocations, nil)
}

// NewNotificationServiceWithLogger constructs a notification service with a specified logger.
func NewNotificationServiceWithLogger(convocations ConvocationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{convocations: convocations, logger: defaultLogger(logger)}
}

// ListNotifications returns one notification per sent, unread convocation of the caller.
func (s *NotificationService) ListNotifications(ctx context.Context, principal Principal) (notifications []Notification, err error) {
	if s == nil || s.convocations == nil {
		err = fmt.Errorf("notification service not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "NotificationService", "ListNotifications", "principal_id", principal.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list notifications", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(notifications)).DebugContext(ctx, "notifications listed")
	}()

	if err = authorize(principal, ActionList, Resource{Kind: ResourceNotification, OwnerID: principal.MemberID}); err != nil {
		return
	}

	memberID := principal.MemberID
	var pending []Convocation
	pending, err = s.convocations.ListConvocations(ctx, ConvocationFilter{
		MemberID:   &memberID,
		Status:     ConvocationSent,
		UnreadOnly: true,
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	notifications = make([]Notification, 0, len(pending))
	for _, conv := range pending {
		notifications = append(notifications, notificationFor(conv))
	}
	return
}

func notificationFor(conv Convocation) Notification {
	message := fmt.Sprintf("Vous êtes convoqué(e) à la session du %s", conv.Session.Date.Format(notificationDateLayout))
	if conv.Session.Location != "" {
		message += " (" + conv.Session.Location + ")"
	}
	createdAt := conv.CreatedAt
	if conv.SentAt != nil {
		createdAt = *conv.SentAt
	}
	return Notification{
		ID:            conv.ID,
		Type:          NotificationTypeConvocation,
		Message:       message,
		CreatedAt:     createdAt,
		ConvocationID: conv.ID,
	}
}
