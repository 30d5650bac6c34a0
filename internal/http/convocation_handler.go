package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/council-portal/internal/application"
)

type convocationService interface {
	CreateConvocation(ctx context.Context, params application.CreateConvocationParams) (application.CreateConvocationResult, error)
	SendBulk(ctx context.Context, params application.BulkSendParams) (application.BulkSendResult, error)
	SendEmail(ctx context.Context, principal application.Principal, convocationID uint) (application.CreateConvocationResult, error)
	MarkRead(ctx context.Context, principal application.Principal, convocationID uint) (application.Convocation, error)
	UpdateConvocation(ctx context.Context, params application.UpdateConvocationParams) (application.Convocation, error)
	DeleteConvocation(ctx context.Context, principal application.Principal, convocationID uint) error
	GetConvocation(ctx context.Context, principal application.Principal, convocationID uint) (application.Convocation, error)
	ListConvocations(ctx context.Context, principal application.Principal, filter application.ConvocationFilter) ([]application.Convocation, error)
}

type ConvocationHandler struct {
	service   convocationService
	responder responder
	logger    *slog.Logger
}

func NewConvocationHandler(service convocationService, logger *slog.Logger) *ConvocationHandler {
	base := defaultLogger(logger)
	return &ConvocationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ConvocationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ConvocationHandler", operation, attrs...)
}

func (h *ConvocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req convocationRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode convocation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params := application.CreateConvocationParams{
		Principal: principal,
		SessionID: req.SessionID,
		MemberID:  req.MemberID,
		Response:  req.Response,
	}
	if req.Status != nil {
		status := application.ConvocationStatus(strings.TrimSpace(*req.Status))
		params.Status = &status
	}

	logger := h.log(r.Context(), "Create", "session_id", req.SessionID, "member_id", req.MemberID)
	result, err := h.service.CreateConvocation(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("convocation_id", result.Convocation.ID, "email_sent", result.EmailSent).InfoContext(r.Context(), "convocation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, convocationSentResponse{
		Convocation: toConvocationDTO(result.Convocation),
		EmailSent:   result.EmailSent,
	})
}

func (h *ConvocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	convocationID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	conv, err := h.service.GetConvocation(r.Context(), principal, convocationID)
	if err != nil {
		h.log(r.Context(), "Get", "convocation_id", convocationID).ErrorContext(r.Context(), "convocation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, convocationResponse{Convocation: toConvocationDTO(conv)})
}

// List accepts the session_id, membre_id and statut filters.
func (h *ConvocationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	sessionID, err := queryUint(r, "session_id")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}
	memberID, err := queryUint(r, "membre_id")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	filter := application.ConvocationFilter{
		SessionID: sessionID,
		MemberID:  memberID,
		Status:    application.ConvocationStatus(strings.TrimSpace(r.URL.Query().Get("statut"))),
	}
	convocations, err := h.service.ListConvocations(r.Context(), principal, filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]convocationDTO, 0, len(convocations))
	for _, conv := range convocations {
		dtos = append(dtos, toConvocationDTO(conv))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listConvocationsResponse{Convocations: dtos})
}

func (h *ConvocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	convocationID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req convocationUpdateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Update", "convocation_id", convocationID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode convocation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "convocation_id", convocationID)
	conv, err := h.service.UpdateConvocation(r.Context(), application.UpdateConvocationParams{
		Principal:     principal,
		ConvocationID: convocationID,
		Update:        req.toUpdate(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", conv.Status).InfoContext(r.Context(), "convocation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, convocationResponse{Convocation: toConvocationDTO(conv)})
}

func (h *ConvocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	convocationID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "Delete", "convocation_id", convocationID)
	if err := h.service.DeleteConvocation(r.Context(), principal, convocationID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "convocation deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ConvocationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	convocationID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "MarkRead", "convocation_id", convocationID)
	conv, err := h.service.MarkRead(r.Context(), principal, convocationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", conv.Status).InfoContext(r.Context(), "convocation marked read")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, convocationResponse{Convocation: toConvocationDTO(conv)})
}

// SendEmail resets a single convocation to envoyée and mails it again.
func (h *ConvocationHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	convocationID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "SendEmail", "convocation_id", convocationID)
	result, err := h.service.SendEmail(r.Context(), principal, convocationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("email_sent", result.EmailSent).InfoContext(r.Context(), "convocation resent")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, convocationSentResponse{
		Convocation: toConvocationDTO(result.Convocation),
		EmailSent:   result.EmailSent,
	})
}

// Bulk sends convocations for the session named in the body.
func (h *ConvocationHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkSendRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Bulk", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode bulk request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	h.sendBulk(w, r, "Bulk", req.SessionID, req.MemberIDs)
}

// SendForSession sends convocations for the session in the path. An empty
// body convokes every active member.
func (h *ConvocationHandler) SendForSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req bulkSendRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.log(r.Context(), "SendForSession", "session_id", sessionID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode send request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	h.sendBulk(w, r, "SendForSession", sessionID, req.MemberIDs)
}

func (h *ConvocationHandler) sendBulk(w http.ResponseWriter, r *http.Request, operation string, sessionID uint, memberIDs []uint) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "session_id", sessionID, "requested", len(memberIDs))

	result, err := h.service.SendBulk(r.Context(), application.BulkSendParams{
		Principal: principal,
		SessionID: sessionID,
		MemberIDs: memberIDs,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("succeeded", result.Succeeded, "failed", result.Failed).InfoContext(r.Context(), "bulk send completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBulkSendResponse(result))
}

type convocationRequest struct {
	SessionID uint    `json:"session_id"`
	MemberID  uint    `json:"membre_id"`
	Status    *string `json:"statut"`
	Response  string  `json:"reponse"`
}

type convocationUpdateRequest struct {
	Status    *string `json:"statut"`
	Response  *string `json:"reponse"`
	SessionID *uint   `json:"session_id"`
	MemberID  *uint   `json:"membre_id"`
}

func (r convocationUpdateRequest) toUpdate() application.ConvocationUpdate {
	update := application.ConvocationUpdate{
		Response:  r.Response,
		SessionID: r.SessionID,
		MemberID:  r.MemberID,
	}
	if r.Status != nil {
		status := application.ConvocationStatus(strings.TrimSpace(*r.Status))
		update.Status = &status
	}
	return update
}

type bulkSendRequest struct {
	SessionID uint   `json:"session_id"`
	MemberIDs []uint `json:"membre_ids"`
}

type convocationResponse struct {
	Convocation convocationDTO `json:"convocation"`
}

type convocationSentResponse struct {
	Convocation convocationDTO `json:"convocation"`
	EmailSent   bool           `json:"email_envoye"`
}

type listConvocationsResponse struct {
	Convocations []convocationDTO `json:"convocations"`
}

type convocationDTO struct {
	ID        uint             `json:"id"`
	SessionID uint             `json:"session_id"`
	MemberID  uint             `json:"membre_id"`
	Status    string           `json:"statut"`
	Response  string           `json:"reponse"`
	SentAt    *string          `json:"date_envoi"`
	ReadAt    *string          `json:"date_lecture"`
	Session   sessionDTO       `json:"session"`
	Member    memberSummaryDTO `json:"membre"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

func toConvocationDTO(conv application.Convocation) convocationDTO {
	return convocationDTO{
		ID:        conv.ID,
		SessionID: conv.SessionID,
		MemberID:  conv.MemberID,
		Status:    string(conv.Status),
		Response:  conv.Response,
		SentAt:    formatTimePtr(conv.SentAt),
		ReadAt:    formatTimePtr(conv.ReadAt),
		Session:   toSessionDTO(conv.Session),
		Member:    toMemberSummaryDTO(conv.Member),
		CreatedAt: formatTime(conv.CreatedAt),
		UpdatedAt: formatTime(conv.UpdatedAt),
	}
}

type bulkOutcomeDTO struct {
	MemberID      uint   `json:"membre_id"`
	ConvocationID *uint  `json:"convocation_id"`
	Sent          bool   `json:"envoye"`
	Error         string `json:"erreur,omitempty"`
}

type bulkSendResponse struct {
	SessionID uint             `json:"session_id"`
	Results   []bulkOutcomeDTO `json:"resultats"`
	Succeeded int              `json:"succes"`
	Failed    int              `json:"echecs"`
}

func toBulkSendResponse(result application.BulkSendResult) bulkSendResponse {
	out := bulkSendResponse{
		SessionID: result.SessionID,
		Results:   make([]bulkOutcomeDTO, 0, len(result.Outcomes)),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}
	for _, outcome := range result.Outcomes {
		dto := bulkOutcomeDTO{
			MemberID: outcome.MemberID,
			Sent:     outcome.EmailSent,
		}
		if outcome.ConvocationID != 0 {
			id := outcome.ConvocationID
			dto.ConvocationID = &id
		}
		if outcome.Error != "" {
			dto.Error = translateMessage(outcome.Error)
		}
		out.Results = append(out.Results, dto)
	}
	return out
}
