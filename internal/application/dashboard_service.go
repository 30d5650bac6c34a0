package application

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultRecentSessions is the number of recent sessions shown when none is configured.
const DefaultRecentSessions = 5

// DashboardService aggregates read-only counts over the other repositories.
type DashboardService struct {
	sessions SessionRepository
	members  MemberRepository
	minutes  MinutesRepository
	recent   int
	logger   *slog.Logger
}

// NewDashboardService constructs a dashboard service.
func NewDashboardService(sessions SessionRepository, members MemberRepository, minutes MinutesRepository, recent int) *DashboardService {
	return NewDashboardServiceWithLogger(sessions, members, minutes, recent, nil)
}

// NewDashboardServiceWithLogger constructs a dashboard service with a specified logger.
func NewDashboardServiceWithLogger(sessions SessionRepository, members MemberRepository, minutes MinutesRepository, recent int, logger *slog.Logger) *DashboardService {
	if recent <= 0 {
		recent = DefaultRecentSessions
	}
	return &DashboardService{
		sessions: sessions,
		members:  members,
		minutes:  minutes,
		recent:   recent,
		logger:   defaultLogger(logger),
	}
}

// GetDashboard returns session counts per status, the active member count,
// the minutes count and the most recently created sessions.
func (s *DashboardService) GetDashboard(ctx context.Context, principal Principal) (dashboard Dashboard, err error) {
	if s == nil || s.sessions == nil || s.members == nil || s.minutes == nil {
		err = fmt.Errorf("dashboard service not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "DashboardService", "GetDashboard", "principal_id", principal.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build dashboard", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("total_sessions", dashboard.TotalSessions).DebugContext(ctx, "dashboard built")
	}()

	if err = authorize(principal, ActionView, Resource{Kind: ResourceDashboard}); err != nil {
		return
	}

	var counts map[SessionStatus]int64
	counts, err = s.sessions.CountSessionsByStatus(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	dashboard.SessionsByStatus = make(map[SessionStatus]int64, len(SessionStatuses))
	for _, status := range SessionStatuses {
		dashboard.SessionsByStatus[status] = 0
	}
	for status, count := range counts {
		dashboard.SessionsByStatus[status] = count
		dashboard.TotalSessions += count
	}

	if dashboard.ActiveMembers, err = s.members.CountActiveMembers(ctx); err != nil {
		err = mapRepoError(err)
		return
	}
	if dashboard.MinutesCount, err = s.minutes.CountMinutes(ctx); err != nil {
		err = mapRepoError(err)
		return
	}

	dashboard.RecentSessions, err = s.sessions.ListRecentSessions(ctx, s.recent)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	for i := range dashboard.RecentSessions {
		sortAgenda(dashboard.RecentSessions[i].Agenda)
	}
	return
}
