package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/council-portal/internal/application"
)

const photoFormField = "photo"

type memberService interface {
	CreateMember(ctx context.Context, params application.CreateMemberParams) (application.Member, error)
	GetMember(ctx context.Context, principal application.Principal, memberID uint) (application.Member, error)
	ListMembers(ctx context.Context, principal application.Principal, activeOnly bool) ([]application.Member, error)
	UpdateMember(ctx context.Context, params application.UpdateMemberParams) (application.Member, error)
	DeleteMember(ctx context.Context, principal application.Principal, memberID uint) error
	UploadPhoto(ctx context.Context, params application.UploadPhotoParams) (application.Member, error)
}

type MemberHandler struct {
	service   memberService
	responder responder
	logger    *slog.Logger
}

func NewMemberHandler(service memberService, logger *slog.Logger) *MemberHandler {
	base := defaultLogger(logger)
	return &MemberHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MemberHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MemberHandler", operation, attrs...)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req memberRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode member request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	member, err := h.service.CreateMember(r.Context(), application.CreateMemberParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("member_id", member.ID).InfoContext(r.Context(), "member created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	memberID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	member, err := h.service.GetMember(r.Context(), principal, memberID)
	if err != nil {
		h.log(r.Context(), "Get", "member_id", memberID).ErrorContext(r.Context(), "member lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	activeOnly, err := queryBool(r, "actif")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	members, err := h.service.ListMembers(r.Context(), principal, activeOnly)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]memberDTO, 0, len(members))
	for _, member := range members {
		dtos = append(dtos, toMemberDTO(member))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMembersResponse{Members: dtos})
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	memberID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req memberUpdateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.log(r.Context(), "Update", "member_id", memberID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode member update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "member_id", memberID)
	member, err := h.service.UpdateMember(r.Context(), application.UpdateMemberParams{
		Principal: principal,
		MemberID:  memberID,
		Update:    req.toUpdate(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	memberID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "Delete", "member_id", memberID)
	if err := h.service.DeleteMember(r.Context(), principal, memberID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// UploadPhoto accepts a multipart form with a "photo" file. The content type
// is sniffed from the bytes, not taken from the client.
func (h *MemberHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	memberID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "UploadPhoto", "member_id", memberID)

	r.Body = http.MaxBytesReader(w, r.Body, application.MaxPhotoSize+(1<<20))
	file, _, err := r.FormFile(photoFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.responder.writeError(r.Context(), w, http.StatusRequestEntityTooLarge, errors.New(localizedStatusMessage(http.StatusRequestEntityTooLarge)))
			return
		}
		logger.WarnContext(r.Context(), "missing photo form field", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, application.MaxPhotoSize+1))
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to read photo", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	member, err := h.service.UploadPhoto(r.Context(), application.UploadPhotoParams{
		Principal:   principal,
		MemberID:    memberID,
		ContentType: http.DetectContentType(data),
		Data:        data,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "photo uploaded")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

type memberRequest struct {
	Name     string `json:"nom"`
	Email    string `json:"email"`
	Function string `json:"fonction"`
	Role     string `json:"role"`
	Password string `json:"password"`
	Active   *bool  `json:"actif"`
}

func (r memberRequest) toInput() application.MemberInput {
	return application.MemberInput{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.TrimSpace(r.Email),
		Function: strings.TrimSpace(r.Function),
		Role:     application.Role(strings.TrimSpace(r.Role)),
		Password: r.Password,
		Active:   r.Active,
	}
}

type memberUpdateRequest struct {
	Name     *string `json:"nom"`
	Email    *string `json:"email"`
	Function *string `json:"fonction"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
	Active   *bool   `json:"actif"`
}

func (r memberUpdateRequest) toUpdate() application.MemberUpdate {
	update := application.MemberUpdate{
		Name:     r.Name,
		Email:    r.Email,
		Function: r.Function,
		Password: r.Password,
		Active:   r.Active,
	}
	if r.Role != nil {
		role := application.Role(strings.TrimSpace(*r.Role))
		update.Role = &role
	}
	return update
}

type memberResponse struct {
	Member memberDTO `json:"membre"`
}

type listMembersResponse struct {
	Members []memberDTO `json:"membres"`
}

type memberDTO struct {
	ID        uint    `json:"id"`
	Name      string  `json:"nom"`
	Email     string  `json:"email"`
	Function  string  `json:"fonction"`
	Role      string  `json:"role"`
	PhotoURL  *string `json:"photo_url"`
	Active    bool    `json:"actif"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toMemberDTO(member application.Member) memberDTO {
	return memberDTO{
		ID:        member.ID,
		Name:      member.Name,
		Email:     member.Email,
		Function:  member.Function,
		Role:      string(member.Role),
		PhotoURL:  member.PhotoURL,
		Active:    member.Active,
		CreatedAt: formatTime(member.CreatedAt),
		UpdatedAt: formatTime(member.UpdatedAt),
	}
}

type memberSummaryDTO struct {
	ID       uint   `json:"id"`
	Name     string `json:"nom"`
	Email    string `json:"email"`
	Function string `json:"fonction"`
}

func toMemberSummaryDTO(summary application.MemberSummary) memberSummaryDTO {
	return memberSummaryDTO{
		ID:       summary.ID,
		Name:     summary.Name,
		Email:    summary.Email,
		Function: summary.Function,
	}
}
