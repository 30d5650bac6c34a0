package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/council-portal/internal/application"
)

type notificationService interface {
	ListNotifications(ctx context.Context, principal application.Principal) ([]application.Notification, error)
}

type dashboardService interface {
	GetDashboard(ctx context.Context, principal application.Principal) (application.Dashboard, error)
}

// OverviewHandler serves the read-only views of the home page: the unread
// notification list and the dashboard counters.
type OverviewHandler struct {
	notifications notificationService
	dashboard     dashboardService
	responder     responder
}

func NewOverviewHandler(notifications notificationService, dashboard dashboardService, logger *slog.Logger) *OverviewHandler {
	return &OverviewHandler{notifications: notifications, dashboard: dashboard, responder: newResponder(logger)}
}

func (h *OverviewHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	if h.notifications == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	notifications, err := h.notifications.ListNotifications(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, notificationDTO{
			ID:            n.ID,
			Type:          n.Type,
			Message:       n.Message,
			CreatedAt:     formatTime(n.CreatedAt),
			ConvocationID: n.ConvocationID,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNotificationsResponse{Notifications: dtos})
}

func (h *OverviewHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if h.dashboard == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	dashboard, err := h.dashboard.GetDashboard(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	byStatus := make(map[string]int64, len(dashboard.SessionsByStatus))
	for status, count := range dashboard.SessionsByStatus {
		byStatus[string(status)] = count
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dashboardDTO{
		SessionsByStatus: byStatus,
		TotalSessions:    dashboard.TotalSessions,
		ActiveMembers:    dashboard.ActiveMembers,
		MinutesCount:     dashboard.MinutesCount,
		RecentSessions:   toSessionDTOs(dashboard.RecentSessions),
	})
}

type notificationDTO struct {
	ID            uint   `json:"id"`
	Type          string `json:"type"`
	Message       string `json:"message"`
	CreatedAt     string `json:"created_at"`
	ConvocationID uint   `json:"convocation_id"`
}

type listNotificationsResponse struct {
	Notifications []notificationDTO `json:"notifications"`
}

type dashboardDTO struct {
	SessionsByStatus map[string]int64 `json:"sessions_par_statut"`
	TotalSessions    int64            `json:"total_sessions"`
	ActiveMembers    int64            `json:"membres_actifs"`
	MinutesCount     int64            `json:"proces_verbaux"`
	RecentSessions   []sessionDTO     `json:"sessions_recentes"`
}
