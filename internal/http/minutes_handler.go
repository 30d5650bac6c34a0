package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/council-portal/internal/application"
)

type minutesService interface {
	CreateMinutes(ctx context.Context, params application.CreateMinutesParams) (application.Minutes, error)
	UpdateMinutes(ctx context.Context, params application.UpdateMinutesParams) (application.Minutes, error)
	GetMinutes(ctx context.Context, principal application.Principal, minutesID uint) (application.Minutes, error)
	ListMinutes(ctx context.Context, principal application.Principal, sessionID *uint) ([]application.Minutes, error)
	DeleteMinutes(ctx context.Context, principal application.Principal, minutesID uint) error
	ExportMinutes(ctx context.Context, principal application.Principal, minutesID uint) (application.MinutesExport, error)
}

type MinutesHandler struct {
	service   minutesService
	responder responder
	logger    *slog.Logger
}

func NewMinutesHandler(service minutesService, logger *slog.Logger) *MinutesHandler {
	base := defaultLogger(logger)
	return &MinutesHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MinutesHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MinutesHandler", operation, attrs...)
}

func (h *MinutesHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req minutesRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode minutes request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "session_id", req.SessionID)
	minutes, err := h.service.CreateMinutes(r.Context(), application.CreateMinutesParams{
		Principal: principal,
		Input: application.MinutesInput{
			SessionID: req.SessionID,
			Content:   req.Content,
			Author:    strings.TrimSpace(req.Author),
			WrittenAt: req.WrittenAt.ptr(),
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("minutes_id", minutes.ID).InfoContext(r.Context(), "minutes created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, minutesResponse{Minutes: toMinutesDTO(minutes)})
}

func (h *MinutesHandler) Get(w http.ResponseWriter, r *http.Request) {
	minutesID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	minutes, err := h.service.GetMinutes(r.Context(), principal, minutesID)
	if err != nil {
		h.log(r.Context(), "Get", "minutes_id", minutesID).ErrorContext(r.Context(), "minutes lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, minutesResponse{Minutes: toMinutesDTO(minutes)})
}

func (h *MinutesHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	sessionID, err := queryUint(r, "session_id")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	list, err := h.service.ListMinutes(r.Context(), principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]minutesDTO, 0, len(list))
	for _, minutes := range list {
		dtos = append(dtos, toMinutesDTO(minutes))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMinutesResponse{Minutes: dtos})
}

func (h *MinutesHandler) Update(w http.ResponseWriter, r *http.Request) {
	minutesID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req minutesUpdateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Update", "minutes_id", minutesID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode minutes update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "minutes_id", minutesID)
	minutes, err := h.service.UpdateMinutes(r.Context(), application.UpdateMinutesParams{
		Principal: principal,
		MinutesID: minutesID,
		Update: application.MinutesUpdate{
			Content:   req.Content,
			Author:    req.Author,
			WrittenAt: req.WrittenAt.ptr(),
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "minutes updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, minutesResponse{Minutes: toMinutesDTO(minutes)})
}

func (h *MinutesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	minutesID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "Delete", "minutes_id", minutesID)
	if err := h.service.DeleteMinutes(r.Context(), principal, minutesID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "minutes deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Export streams the rendered document as a download.
func (h *MinutesHandler) Export(w http.ResponseWriter, r *http.Request) {
	minutesID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "Export", "minutes_id", minutesID)
	export, err := h.service.ExportMinutes(r.Context(), principal, minutesID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Body); err != nil {
		logger.ErrorContext(r.Context(), "failed to write export", "error", err)
		return
	}
	logger.With("filename", export.Filename).InfoContext(r.Context(), "minutes exported")
}

type minutesRequest struct {
	SessionID uint      `json:"session_id"`
	Content   string    `json:"contenu"`
	Author    string    `json:"auteur"`
	WrittenAt *jsonTime `json:"date_redaction"`
}

type minutesUpdateRequest struct {
	Content   *string   `json:"contenu"`
	Author    *string   `json:"auteur"`
	WrittenAt *jsonTime `json:"date_redaction"`
}

type minutesResponse struct {
	Minutes minutesDTO `json:"proces_verbal"`
}

type listMinutesResponse struct {
	Minutes []minutesDTO `json:"proces_verbaux"`
}

type minutesDTO struct {
	ID         uint       `json:"id"`
	SessionID  uint       `json:"session_id"`
	Content    string     `json:"contenu"`
	Author     string     `json:"auteur"`
	RedactorID *uint      `json:"redacteur_id"`
	WrittenAt  string     `json:"date_redaction"`
	Session    sessionDTO `json:"session"`
	CreatedAt  string     `json:"created_at"`
	UpdatedAt  string     `json:"updated_at"`
}

func toMinutesDTO(minutes application.Minutes) minutesDTO {
	return minutesDTO{
		ID:         minutes.ID,
		SessionID:  minutes.SessionID,
		Content:    minutes.Content,
		Author:     minutes.Author,
		RedactorID: minutes.RedactorID,
		WrittenAt:  formatTime(minutes.WrittenAt),
		Session:    toSessionDTO(minutes.Session),
		CreatedAt:  formatTime(minutes.CreatedAt),
		UpdatedAt:  formatTime(minutes.UpdatedAt),
	}
}
