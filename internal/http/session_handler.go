package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/council-portal/internal/application"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.Session, error)
	UpdateSession(ctx context.Context, params application.UpdateSessionParams) (application.Session, error)
	GetSession(ctx context.Context, principal application.Principal, sessionID uint) (application.Session, error)
	ListSessions(ctx context.Context, principal application.Principal, status application.SessionStatus) ([]application.Session, error)
	DeleteSession(ctx context.Context, principal application.Principal, sessionID uint) error
}

type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req sessionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	session, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	session, err := h.service.GetSession(r.Context(), principal, sessionID)
	if err != nil {
		h.log(r.Context(), "Get", "session_id", sessionID).ErrorContext(r.Context(), "session lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	status := application.SessionStatus(strings.TrimSpace(r.URL.Query().Get("statut")))

	sessions, err := h.service.ListSessions(r.Context(), principal, status)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req sessionUpdateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Update", "session_id", sessionID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode session update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "session_id", sessionID)
	session, err := h.service.UpdateSession(r.Context(), application.UpdateSessionParams{
		Principal: principal,
		SessionID: sessionID,
		Update:    req.toUpdate(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "Delete", "session_id", sessionID)
	if err := h.service.DeleteSession(r.Context(), principal, sessionID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type agendaItemRequest struct {
	Title       string `json:"titre"`
	Description string `json:"description"`
	Position    *int   `json:"ordre"`
}

func toAgendaInputs(items []agendaItemRequest) []application.AgendaItemInput {
	inputs := make([]application.AgendaItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, application.AgendaItemInput{
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			Position:    item.Position,
		})
	}
	return inputs
}

type sessionRequest struct {
	Date            jsonTime            `json:"date"`
	Location        string              `json:"lieu"`
	President       string              `json:"president"`
	Title           *string             `json:"titre"`
	Status          string              `json:"statut"`
	DurationMinutes int                 `json:"duree"`
	Quorum          int                 `json:"quorum"`
	Agenda          []agendaItemRequest `json:"ordre_du_jour"`
}

func (r sessionRequest) toInput() application.SessionInput {
	return application.SessionInput{
		Date:            r.Date.Time,
		Location:        strings.TrimSpace(r.Location),
		President:       strings.TrimSpace(r.President),
		Title:           r.Title,
		Status:          application.SessionStatus(strings.TrimSpace(r.Status)),
		DurationMinutes: r.DurationMinutes,
		Quorum:          r.Quorum,
		Agenda:          toAgendaInputs(r.Agenda),
	}
}

// sessionUpdateRequest leaves absent fields untouched; a present
// ordre_du_jour replaces the whole agenda.
type sessionUpdateRequest struct {
	Date            *jsonTime            `json:"date"`
	Location        *string              `json:"lieu"`
	President       *string              `json:"president"`
	Title           *string              `json:"titre"`
	Status          *string              `json:"statut"`
	DurationMinutes *int                 `json:"duree"`
	Quorum          *int                 `json:"quorum"`
	Agenda          *[]agendaItemRequest `json:"ordre_du_jour"`
}

func (r sessionUpdateRequest) toUpdate() application.SessionUpdate {
	update := application.SessionUpdate{
		Date:            r.Date.ptr(),
		Location:        r.Location,
		President:       r.President,
		Title:           r.Title,
		DurationMinutes: r.DurationMinutes,
		Quorum:          r.Quorum,
	}
	if r.Status != nil {
		status := application.SessionStatus(strings.TrimSpace(*r.Status))
		update.Status = &status
	}
	if r.Agenda != nil {
		agenda := toAgendaInputs(*r.Agenda)
		update.Agenda = &agenda
	}
	return update
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type agendaItemDTO struct {
	ID          uint   `json:"id"`
	Title       string `json:"titre"`
	Description string `json:"description"`
	Position    int    `json:"ordre"`
}

type sessionDTO struct {
	ID              uint            `json:"id"`
	Date            string          `json:"date"`
	Location        string          `json:"lieu"`
	President       string          `json:"president"`
	Title           *string         `json:"titre"`
	Status          string          `json:"statut"`
	DurationMinutes int             `json:"duree"`
	Quorum          int             `json:"quorum"`
	Agenda          []agendaItemDTO `json:"ordre_du_jour"`
	CreatedAt       string          `json:"created_at,omitempty"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

func toSessionDTO(session application.Session) sessionDTO {
	agenda := make([]agendaItemDTO, 0, len(session.Agenda))
	for _, item := range session.Agenda {
		agenda = append(agenda, agendaItemDTO{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Position:    item.Position,
		})
	}
	return sessionDTO{
		ID:              session.ID,
		Date:            formatTime(session.Date),
		Location:        session.Location,
		President:       session.President,
		Title:           session.Title,
		Status:          string(session.Status),
		DurationMinutes: session.DurationMinutes,
		Quorum:          session.Quorum,
		Agenda:          agenda,
		CreatedAt:       formatTime(session.CreatedAt),
		UpdatedAt:       formatTime(session.UpdatedAt),
	}
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}
